package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 4096

	// Размер буфера по умолчанию для канала отправки сообщений клиенту
	defaultClientBufferSize = 128

	// Максимальное количество предупреждений о переполнении буфера до отключения
	maxBufferWarnings = 3
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// ClientConfig содержит настройки для клиента
type ClientConfig struct {
	// BufferSize определяет размер буфера канала отправки сообщений
	BufferSize int

	// PingInterval определяет интервал между ping-сообщениями
	PingInterval time.Duration

	// PongWait определяет время ожидания pong-ответа
	PongWait time.Duration

	// WriteWait определяет тайм-аут для записи сообщений
	WriteWait time.Duration

	// MaxMessageSize определяет максимальный размер сообщения
	MaxMessageSize int64
}

// DefaultClientConfig возвращает конфигурацию клиента по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BufferSize:     defaultClientBufferSize,
		PingInterval:   pingPeriod,
		PongWait:       pongWait,
		WriteWait:      writeWait,
		MaxMessageSize: maxMessageSize,
	}
}

// Client является посредником между WebSocket соединением и реестром.
// Вся привязка к игроку/команде/игре живет в Registry, а не в клиенте:
// клиент знает только свое соединение и исходящую очередь.
type Client struct {
	// Уникальный ID для каждого соединения
	ConnectionID string

	// Реестр подключений, в котором зарегистрирован клиент
	registry *Registry

	// WebSocket соединение
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений
	send chan []byte

	// Флаг, указывающий что канал send закрыт (для предотвращения panic)
	sendClosed atomic.Bool

	// Защищает send от закрытия во время постановки сообщения в очередь:
	// enqueue держит RLock, CloseSend — Lock
	sendMutex sync.RWMutex

	// Время последней активности клиента
	lastActivity time.Time

	// Конфигурация пампов
	config ClientConfig

	// Счетчик предупреждений о переполнении буфера
	bufferWarningCount int32
	bufferWarningMutex sync.Mutex
}

// NewClient создает нового клиента с конфигурацией по умолчанию
func NewClient(registry *Registry, conn *websocket.Conn) *Client {
	return NewClientWithConfig(registry, conn, DefaultClientConfig())
}

// NewClientWithConfig создает нового клиента с указанной конфигурацией
func NewClientWithConfig(registry *Registry, conn *websocket.Conn, config ClientConfig) *Client {
	if config.BufferSize <= 0 {
		config.BufferSize = defaultClientBufferSize
	}
	if config.PongWait <= 0 {
		config.PongWait = pongWait
	}
	if config.PingInterval <= 0 {
		config.PingInterval = (config.PongWait * 9) / 10
	}
	if config.WriteWait <= 0 {
		config.WriteWait = writeWait
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = maxMessageSize
	}

	return &Client{
		ConnectionID: uuid.New().String(),
		registry:     registry,
		conn:         conn,
		send:         make(chan []byte, config.BufferSize),
		lastActivity: time.Now(),
		config:       config,
	}
}

// SendEvent сериализует событие и ставит его в исходящую очередь клиента
func (c *Client) SendEvent(event Event) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.MsgType, err)
	}
	if !c.enqueue(message) {
		return fmt.Errorf("send queue unavailable for connection %s", c.ConnectionID)
	}
	return nil
}

// enqueue ставит сообщение в исходящую очередь без блокировки.
// Возвращает false, если канал закрыт или буфер переполнен сверх лимита
// предупреждений — вызывающий в этом случае должен снять клиента с учета.
func (c *Client) enqueue(message []byte) bool {
	c.sendMutex.RLock()
	defer c.sendMutex.RUnlock()

	if c.sendClosed.Load() {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		count := c.incrementBufferWarningCount()
		log.Printf("[Client %s] Буфер отправки переполнен (предупреждение %d/%d)",
			c.ConnectionID, count, maxBufferWarnings)
		return count < maxBufferWarnings
	}
}

// readPump читает сообщения от клиента и передает их обработчику.
// При любом выходе из цикла соединение закрывается и клиент снимается
// с учета в реестре ровно один раз (повторный вызов Unregister — no-op).
func (c *Client) readPump(messageHandler func(message []byte, client *Client) error) {
	defer func() {
		log.Printf("WebSocket: read pump stopped for connection %s", c.ConnectionID)
		c.registry.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		c.lastActivity = time.Now()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket: read error for connection %s: %v", c.ConnectionID, err)
			} else {
				log.Printf("WebSocket: connection %s closed: %v", c.ConnectionID, err)
			}
			break
		}

		c.lastActivity = time.Now()

		// Безопасный вызов обработчика с recover: паника одного сообщения
		// не должна ронять весь процесс
		if handlerErr := safeHandleMessage(message, c, messageHandler); handlerErr != nil {
			log.Printf("WebSocket: handler error for connection %s: %v. Closing connection.", c.ConnectionID, handlerErr)
			break
		}

		c.resetBufferWarningCount()
	}
}

// safeHandleMessage — обертка для вызова обработчика с recover.
// Возвращает ошибку, только если обработчик счел ее фатальной для соединения.
func safeHandleMessage(message []byte, client *Client, messageHandler func(message []byte, client *Client) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in message handler for connection %s. Panic: %v\nStack trace:\n%s",
				client.ConnectionID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
	if messageHandler != nil {
		err = messageHandler(message, client)
	} else {
		log.Printf("Warning: no message handler registered for connection %s", client.ConnectionID)
	}
	return err
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		log.Printf("WebSocket: write pump stopped for connection %s", c.ConnectionID)
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				log.Printf("WebSocket: SetWriteDeadline error for connection %s: %v", c.ConnectionID, err)
				return
			}

			if !ok {
				// Канал send закрыт реестром
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				log.Printf("WebSocket: NextWriter error for connection %s: %v", c.ConnectionID, err)
				return
			}

			if _, err := w.Write(message); err != nil {
				log.Printf("WebSocket: write error for connection %s: %v", c.ConnectionID, err)
			}

			if err := w.Close(); err != nil {
				log.Printf("WebSocket: writer close error for connection %s: %v", c.ConnectionID, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				log.Printf("WebSocket: SetWriteDeadline (ping) error for connection %s: %v", c.ConnectionID, err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("WebSocket: ping error for connection %s: %v", c.ConnectionID, err)
				return
			}
		}
	}
}

// StartPumps запускает горутины для чтения и записи сообщений
func (c *Client) StartPumps(messageHandler func(message []byte, client *Client) error) {
	go c.writePump()
	go c.readPump(messageHandler)
}

// incrementBufferWarningCount увеличивает счетчик предупреждений и возвращает новое значение
func (c *Client) incrementBufferWarningCount() int32 {
	c.bufferWarningMutex.Lock()
	defer c.bufferWarningMutex.Unlock()
	c.bufferWarningCount++
	return c.bufferWarningCount
}

// resetBufferWarningCount сбрасывает счетчик предупреждений
func (c *Client) resetBufferWarningCount() {
	c.bufferWarningMutex.Lock()
	defer c.bufferWarningMutex.Unlock()
	if c.bufferWarningCount > 0 {
		c.bufferWarningCount = 0
	}
}

// CloseSend безопасно закрывает канал send (только один раз).
// Возвращает true, если канал был закрыт этим вызовом.
func (c *Client) CloseSend() bool {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
		return true
	}
	return false
}

// IsSendClosed проверяет, закрыт ли канал send
func (c *Client) IsSendClosed() bool {
	return c.sendClosed.Load()
}
