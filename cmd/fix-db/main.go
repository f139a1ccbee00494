package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/yourusername/pubquiz-api/internal/config"
)

// Утилита разового ремонта данных: снимает лишние флаги выбора и
// дубликаты голосов, оставшиеся от старых версий без блокировок.
// На пару (вопрос, команда) должен оставаться не более одного
// выбранного ответа — оставляем самый свежий.
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	// Снимаем выбор со всех ответов пары (вопрос, команда), кроме
	// последнего измененного
	res, err := db.Exec(`
		UPDATE given_answers SET is_selected = false
		WHERE is_selected = true
		  AND id NOT IN (
			SELECT DISTINCT ON (a.question_id, m.team_id) a.id
			FROM given_answers a
			JOIN memberships m ON m.id = a.membership_id
			WHERE a.is_selected = true
			ORDER BY a.question_id, m.team_id, a.created_at DESC, a.id DESC
		  )`)
	if err != nil {
		log.Fatalf("Failed to clear duplicate selections: %v", err)
	}
	cleared, _ := res.RowsAffected()
	fmt.Printf("Снято лишних выборов: %d\n", cleared)

	// Удаляем дубликаты голосов, оставляя строку с минимальным id
	res, err = db.Exec(`
		DELETE FROM votes v USING votes dup
		WHERE v.answer_id = dup.answer_id
		  AND v.membership_id = dup.membership_id
		  AND v.id > dup.id`)
	if err != nil {
		log.Fatalf("Failed to dedupe votes: %v", err)
	}
	deduped, _ := res.RowsAffected()
	fmt.Printf("Удалено дубликатов голосов: %d\n", deduped)

	fmt.Println("Success! Данные приведены к инвариантам.")
}
