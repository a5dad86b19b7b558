// talkbridge - voice translation chat client
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/talkbridge/clients/go/talkbridge"
	"github.com/eldtechnologies/talkbridge/internal/config"
	"github.com/eldtechnologies/talkbridge/internal/models"
	"github.com/eldtechnologies/talkbridge/internal/session"
	"github.com/eldtechnologies/talkbridge/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	exitOnError(err)

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := talkbridge.NewClient(cfg.ServerURL, cfg.HTTPTimeout)
	args := os.Args[2:]
	// one reader for setup prompts and chat commands alike
	stdin := bufio.NewScanner(os.Stdin)

	switch cmd := os.Args[1]; cmd {
	case "create":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: talkbridge create <name> <language>")
			os.Exit(1)
		}
		sess, err := createSession(ctx, client, session.Setup{Name: args[0], Language: args[1]})
		exitOnError(err)
		fmt.Printf("Session code: %s (share it with the other participant)\n", sess.SessionID)
		exitOnError(runChat(ctx, cfg, logger, client, sess, stdin))

	case "join":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: talkbridge join <code> <name> <language>")
			os.Exit(1)
		}
		sess, err := joinSession(ctx, client, session.Setup{SessionID: args[0], Name: args[1], Language: args[2]})
		exitOnError(err)
		fmt.Printf("Joined %s with %s (%s)\n", sess.SessionID, sess.OtherUserName, sess.OtherUserLanguage)
		exitOnError(runChat(ctx, cfg, logger, client, sess, stdin))

	case "chat":
		sess, err := promptSetup(ctx, client, stdin, os.Stdout)
		exitOnError(err)
		exitOnError(runChat(ctx, cfg, logger, client, sess, stdin))

	case "history":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: talkbridge history <code>")
			os.Exit(1)
		}
		resp, err := client.GetMessages(ctx, session.NormalizeCode(args[0]))
		exitOnError(err)
		for _, m := range resp.Messages {
			ts := models.ParseTimestamp(m.Timestamp)
			fmt.Printf("[%s] %s: %s -> %s\n", ts.Format("2006-01-02 15:04:05"), m.SenderRole, m.OriginalText, m.TranslatedText)
		}

	case "info":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: talkbridge info <code>")
			os.Exit(1)
		}
		resp, err := client.SessionInfo(ctx, session.NormalizeCode(args[0]))
		exitOnError(err)
		printJSON(resp.Session)

	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "transcript":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: talkbridge transcript <code>")
			os.Exit(1)
		}
		if cfg.TranscriptURL == "" {
			exitOnError(fmt.Errorf("TRANSCRIPT_URL is not set"))
		}
		archive, err := store.Open(ctx, cfg.TranscriptURL)
		exitOnError(err)
		defer archive.Close()

		entries, err := archive.ListMessages(ctx, session.NormalizeCode(args[0]))
		exitOnError(err)
		for _, e := range entries {
			fmt.Printf("[%s] %s: %s -> %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.SenderRole, e.OriginalText, e.TranslatedText)
		}

	case "languages":
		for _, l := range models.Languages {
			fmt.Printf("  %s  %s\n", l.Code, l.Name)
		}

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// newLogger writes to stderr so the chat transcript on stdout stays readable.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(os.Stderr).
		With().
		Timestamp().
		Logger()
}

func usage() {
	fmt.Println(`talkbridge - two-party voice translation chat

Usage: talkbridge <command> [options]

Commands:
  create <name> <language>         Create a session and start chatting
  join <code> <name> <language>    Join a session and start chatting
  chat                             Interactive setup, then chat
  history <code>                   Print a session's messages
  info <code>                      Print session metadata
  transcript <code>                Print the locally archived transcript
  languages                        List supported languages
  health                           Check server health

Environment:
  TALKBRIDGE_URL    Server URL (default: http://localhost:3000)
  CONTROL_ADDR      Local control API address (default: 127.0.0.1:8787)
  TRANSCRIPT_URL    Transcript archive (sqlite://, postgres://, redis://)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
