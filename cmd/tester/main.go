// Manual end-to-end client: joins a chat over the websocket endpoint,
// prints every frame the relay pushes, and sends what you type.
//
//	/lang fr   switch the session's target language
//	anything else is sent as a message
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerURL string `envconfig:"RELAY_WS_URL" default:"ws://localhost:8080/ws"`
	ChatID    string `envconfig:"RELAY_CHAT_ID" required:"true"`
	UserID    string `envconfig:"RELAY_USER_ID" default:"tester"`
	Lang      string `envconfig:"RELAY_LANG" default:"en"`
	Colours   bool   `envconfig:"RELAY_COLOURS" default:"true"`
}

type clientFrame struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId,omitempty"`
	UserID string `json:"userId,omitempty"`
	Lang   string `json:"lang,omitempty"`
	Text   string `json:"text,omitempty"`
}

type serverFrame struct {
	Type           string `json:"type"`
	MessageID      string `json:"messageId"`
	User           string `json:"user"`
	TranslatedText string `json:"translatedText"`
	TargetLang     string `json:"targetLang"`
	Replayed       bool   `json:"replayed"`
	Message        string `json:"message"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tester error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(clientFrame{
		Type: "join", ChatID: config.ChatID, UserID: config.UserID, Lang: config.Lang,
	}); err != nil {
		return exitRuntime, fmt.Errorf("join failed: %w", err)
	}

	header := fmt.Sprintf("  ====== %s joined chat %s [%s] ======",
		config.UserID, config.ChatID, config.Lang)
	if config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	// Receiver: prints frames until the connection drops.
	go func() {
		defer stop()
		for {
			var frame serverFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			printFrame(config, frame)
		}
	}()

	// Sender: stdin lines become frames.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var frame clientFrame
			if lang, ok := strings.CutPrefix(line, "/lang "); ok {
				frame = clientFrame{Type: "setLanguage", ChatID: config.ChatID, UserID: config.UserID, Lang: strings.TrimSpace(lang)}
			} else {
				frame = clientFrame{Type: "sendMessage", Text: line}
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	fmt.Println("\nBye.")
	return exitOK, nil
}

func printFrame(config Config, frame serverFrame) {
	switch frame.Type {
	case "historyStart":
		line := "--- history ---"
		if config.Colours {
			line = color.FgYellow.Render(line)
		}
		fmt.Println(line)
	case "message":
		prefix := ""
		if frame.Replayed {
			prefix = "(replay) "
		}
		line := fmt.Sprintf("%s%s [%s]: %s", prefix, frame.User, frame.TargetLang, frame.TranslatedText)
		if config.Colours && frame.Replayed {
			line = color.FgGray.Render(line)
		}
		fmt.Println(line)
	case "error":
		line := "error: " + frame.Message
		if config.Colours {
			line = color.FgRed.Render(line)
		}
		fmt.Println(line)
	default:
		raw, _ := json.Marshal(frame)
		fmt.Println(string(raw))
	}
}
