package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/yourusername/pubquiz-api/internal/pkg/errors"
	"github.com/yourusername/pubquiz-api/internal/service"
)

// GameHandler обрабатывает административные REST-запросы каталога игр
type GameHandler struct {
	gameService *service.GameService
}

// NewGameHandler создает новый обработчик игр
func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// CreateGameRequest представляет запрос на создание игры
type CreateGameRequest struct {
	Name         string   `json:"name" binding:"required,min=1,max=200"`
	NumQuestions int      `json:"num_questions" binding:"omitempty,min=0"`
	Questions    []string `json:"questions" binding:"omitempty"`
}

// ListGames возвращает список всех игр
func (h *GameHandler) ListGames(c *gin.Context) {
	games, err := h.gameService.List()
	if err != nil {
		log.Printf("[GameHandler] Ошибка чтения списка игр: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list games"})
		return
	}
	c.JSON(http.StatusOK, games)
}

// CreateGame создает новую игру (опционально — сразу с вопросами)
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.gameService.Create(req.Name, req.NumQuestions, req.Questions)
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"game_uuid":     game.UUID,
		"game_name":     game.Name,
		"num_questions": game.NumQuestions,
	})
}

// ExportQuestions выгружает вопросы игры в XLSX-файл
func (h *GameHandler) ExportQuestions(c *gin.Context) {
	gameUUID := c.Param("uuid")

	game, questions, err := h.gameService.ExportQuestions(gameUUID)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", game.Name))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Вопросы"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[GameHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"№", "Вопрос", "Опубликован"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[GameHandler] Ошибка записи заголовков: %v", err)
	}
	for i, q := range questions {
		published := "Нет"
		if q.IsActive {
			published = "Да"
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := sw.SetRow(cell, []interface{}{i + 1, q.Text, published}); err != nil {
			log.Printf("[GameHandler] Ошибка записи строки %d: %v", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		log.Printf("[GameHandler] Ошибка завершения записи: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
		return
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[GameHandler] Ошибка отправки файла: %v", err)
	}
}

// ImportQuestions загружает вопросы игры из XLSX-файла (multipart-поле
// "file", вопросы в первой колонке, первая строка — заголовок)
func (h *GameHandler) ImportQuestions(c *gin.Context) {
	gameUUID := c.Param("uuid")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("[GameHandler] Ошибка открытия загруженного файла: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open file"})
		return
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Excel file"})
		return
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		log.Printf("[GameHandler] Ошибка чтения листа %q: %v", sheet, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read sheet"})
		return
	}

	var texts []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			// Первая строка - заголовок
			continue
		}
		text := row[0]
		// В экспортном формате вопрос во второй колонке, после номера
		if len(row) > 1 && row[1] != "" {
			text = row[1]
		}
		texts = append(texts, text)
	}

	count, err := h.gameService.ImportQuestions(gameUUID, texts)
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": count})
}

func (h *GameHandler) handleGameError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game data"})
	default:
		log.Printf("[GameHandler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
