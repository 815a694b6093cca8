package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"chessclient/internal/config"
	"chessclient/internal/protocol"
	"chessclient/internal/session"
	"chessclient/internal/transport"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	api := transport.NewAPI(cfg.ServerURL, log)
	creds := config.NewCredentialStore(cfg.CredentialsFile)

	ctx := context.Background()
	ctrl := session.New(ctx, cfg, api, creds, termUI{}, log)

	fmt.Printf("connected to %s. type `help`\n", cfg.ServerURL)
	repl(ctx, ctrl, api, creds)
}

func newLogger(level string) *zap.SugaredLogger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zc.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	return logger.Sugar()
}

func repl(ctx context.Context, ctrl *session.Controller, api *transport.API, creds *config.CredentialStore) {
	sc := bufio.NewScanner(os.Stdin)
	for fmt.Print("> "); sc.Scan(); fmt.Print("> ") {
		args := strings.Fields(sc.Text())
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			usage()
		case "login":
			if len(args) != 3 {
				fmt.Println("usage: login <email> <password>")
				continue
			}
			token, err := api.Login(ctx, args[1], args[2])
			if err != nil {
				fmt.Println("login failed:", err)
				continue
			}
			if err := creds.Save(token); err != nil {
				fmt.Println("could not store credential:", err)
				continue
			}
			fmt.Println("logged in")
		case "logout":
			ctrl.Inbox() <- session.Logout{}
		case "bot":
			ctrl.Inbox() <- session.PlayBot{}
		case "host":
			ctrl.Inbox() <- session.HostRoom{}
		case "join":
			if len(args) != 2 {
				fmt.Println("usage: join <roomID>")
				continue
			}
			ctrl.Inbox() <- session.JoinRoom{RoomID: args[1]}
		case "ranked":
			ctrl.Inbox() <- session.FindRanked{}
		case "cancel":
			ctrl.Inbox() <- session.CancelSearch{}
		case "ready":
			ctrl.Inbox() <- session.SetReady{}
		case "start":
			ctrl.Inbox() <- session.StartGame{}
		case "color":
			if len(args) != 2 {
				fmt.Println("usage: color <white|black|random>")
				continue
			}
			ctrl.Inbox() <- session.AssignColor{Color: args[1]}
		case "move":
			m, err := parseMove(args[1:])
			if err != nil {
				fmt.Println(err)
				continue
			}
			ctrl.Inbox() <- m
		case "leave":
			ctrl.Inbox() <- session.Leave{}
		case "state":
			reply := make(chan session.View, 1)
			ctrl.Inbox() <- session.GetState{Reply: reply}
			v := <-reply
			fmt.Printf("mode=%s color=%s status=%s room=%s pending=%v\nfen=%s\n",
				v.Mode, v.Color, v.GameStatus, v.RoomID, v.Pending, v.Confirmed)
		case "quit", "exit":
			ctrl.Inbox() <- session.Shutdown{}
			return
		default:
			fmt.Println("unknown command; try `help`")
		}
	}
}

// parseMove accepts "e2e4" or "e7e8 q".
func parseMove(args []string) (session.ProposeMove, error) {
	if len(args) < 1 || len(args[0]) != 4 {
		return session.ProposeMove{}, fmt.Errorf("usage: move <fromto> [promotion], e.g. move e2e4")
	}
	m := session.ProposeMove{From: args[0][:2], To: args[0][2:]}
	if len(args) > 1 {
		m.Promotion = args[1]
	}
	return m, nil
}

func usage() {
	fmt.Print(`commands:
  login <email> <password>   authenticate and store the token
  logout                     clear the stored token
  bot                        play the server bot
  host                       create a room and join as host
  join <roomID>              join an existing room
  ranked                     search for a ranked opponent
  cancel                     leave the ranked queue
  color <white|black|random> pick sides (host, in lobby)
  ready                      toggle readiness (in lobby)
  start                      start the game (host, in lobby)
  move <fromto> [promotion]  e.g. move e2e4, move e7e8 q
  leave                      back to idle
  state                      show session state
  quit                       exit
`)
}

// termUI is the plain-text render boundary; the controller core neither
// knows nor cares that it is a terminal.
type termUI struct{}

func (termUI) RenderPosition(fen string) { fmt.Println("\nposition:", fen) }

func (termUI) RenderOptimistic(fen string, move protocol.Move) {
	fmt.Printf("\nplayed %s%s%s (awaiting server)\n", move.From, move.To, move.Promotion)
}

func (termUI) Notice(message string) { fmt.Println("\n*", message) }

func (termUI) GameOver(status string) {
	fmt.Println("\ngame over:", strings.ReplaceAll(status, "_", " "))
}

func (termUI) LobbyUpdate(ls protocol.LobbyState) {
	fmt.Printf("\nlobby: players=%d host=%v guest_ready=%v type=%s\n",
		ls.PlayerCount, ls.IsHost, ls.GuestReady, ls.GameType)
}

func (termUI) ColorAssigned(color string) { fmt.Println("\nyou are", color) }

// PromptPromotion cancels; the repl passes the piece with the move instead
// (stdin belongs to the repl loop).
func (termUI) PromptPromotion() (string, bool) {
	fmt.Println("\nthat move promotes: repeat it with a piece, e.g. `move e7e8 q`")
	return "", false
}

func (termUI) AuthRequired() { fmt.Println("\nlogin required: `login <email> <password>`") }
