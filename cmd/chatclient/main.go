// Command chatclient is a terminal client joining one room of a running chatd.
// Lines typed on stdin are sent to the room, "/unread" prints the unread counters
// and "/history" the latest messages.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"listing-chat/auth"
	"log"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	Addr   string `envconfig:"CHAT_ADDR" default:"localhost:8080"`
	Token  string `envconfig:"CHAT_TOKEN"`
	Secret string `envconfig:"JWT_SECRET"`
	User   string `envconfig:"CHAT_USER"`
	RoomID string `envconfig:"ROOM_ID" required:"true"`
	// COLOURS enables colorized output
	Colours bool `envconfig:"COLOURS" default:"true"`
}

type event struct {
	Event    string `json:"event"`
	RoomID   string `json:"room_id"`
	SenderID string `json:"sender_id"`
	Message  *struct {
		Content   string    `json:"content"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"message"`
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Config error: ", err)
	}
	token, err := resolveToken(cfg)
	if err != nil {
		log.Fatal(err)
	}

	u := url.URL{Scheme: "ws", Host: cfg.Addr, Path: "/ws/" + cfg.RoomID}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), http.Header{"Authorization": []string{"Bearer " + token}})
	if err != nil {
		if resp != nil {
			log.Fatalf("Handshake refused: %s", resp.Status)
		}
		log.Fatal("Dial error: ", err)
	}
	defer conn.Close()

	printer := printer{colours: cfg.Colours}
	printer.info(fmt.Sprintf("Connected to room %s", cfg.RoomID))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var e event
			if err := conn.ReadJSON(&e); err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					printer.info(fmt.Sprintf("Connection closed (%d %s)", closeErr.Code, closeErr.Text))
				} else {
					printer.error(err.Error())
				}
				return
			}
			printer.event(e)
		}
	}()

	api := apiClient{addr: cfg.Addr, token: token}
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "/unread":
				if err := api.printUnread(); err != nil {
					printer.error(err.Error())
				}
			case "/history":
				if err := api.printHistory(cfg.RoomID); err != nil {
					printer.error(err.Error())
				}
			default:
				if err := conn.WriteJSON(map[string]string{"content": line}); err != nil {
					printer.error(err.Error())
					return
				}
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}()
	<-done
}

func resolveToken(cfg Config) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.Secret == "" || cfg.User == "" {
		return "", fmt.Errorf("either CHAT_TOKEN or JWT_SECRET with CHAT_USER is required")
	}
	return auth.NewTokens(cfg.Secret, 24*time.Hour).GenerateToken(cfg.User)
}

type printer struct {
	colours bool
}

func (p printer) render(style color.Style, s string) string {
	if !p.colours {
		return s
	}
	return style.Render(s)
}

func (p printer) info(s string) {
	fmt.Println(p.render(color.New(color.FgGreen), s))
}

func (p printer) error(s string) {
	fmt.Println(p.render(color.New(color.FgRed, color.OpBold), s))
}

func (p printer) event(e event) {
	switch e.Event {
	case "message":
		if e.Message == nil {
			return
		}
		at := e.Message.Timestamp.Local().Format("15:04:05")
		fmt.Printf("%s %s %s\n", at, p.render(color.New(color.FgCyan), e.SenderID+":"), e.Message.Content)
	case "error":
		p.error(fmt.Sprintf("rejected (%s): %s", e.Error, e.Detail))
	}
}

type apiClient struct {
	addr  string
	token string
}

func (a apiClient) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, "http://"+a.addr+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a apiClient) printUnread() error {
	counts := map[string]int{}
	if err := a.get("/api/v1/chat/unread-counts", &counts); err != nil {
		return err
	}
	roomIDs := make([]string, 0, len(counts))
	for roomID := range counts {
		roomIDs = append(roomIDs, roomID)
	}
	sort.Strings(roomIDs)

	table := newTable([]string{"Room", "Unread"})
	for _, roomID := range roomIDs {
		table.Append([]string{roomID, strconv.Itoa(counts[roomID])})
	}
	table.Render()
	return nil
}

func (a apiClient) printHistory(roomID string) error {
	var messages []struct {
		SenderID  string    `json:"sender_id"`
		Content   string    `json:"content"`
		Timestamp time.Time `json:"timestamp"`
		ReadBy    []string  `json:"read_by"`
	}
	if err := a.get("/api/v1/chat/rooms/"+roomID+"/messages", &messages); err != nil {
		return err
	}
	table := newTable([]string{"At", "Sender", "Content", "Read by"})
	for _, m := range messages {
		table.Append([]string{m.Timestamp.Local().Format(time.DateTime), m.SenderID, m.Content, strings.Join(m.ReadBy, ",")})
	}
	table.Render()
	return nil
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}
