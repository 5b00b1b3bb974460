package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"listing-chat/auth"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type BaseChatSuite struct {
	suite.Suite
	Config Config
	tokens *auth.Tokens
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ChatAddr == "" {
		s.T().Skip("CHAT_ADDR not set, skipping end-to-end suite")
	}
	s.Require().NotEmpty(s.Config.JWTSecret, "JWT_SECRET is required to mint tokens")
	s.tokens = auth.NewTokens(s.Config.JWTSecret, time.Hour)
	s.client = &http.Client{Timeout: 10 * time.Second}
}

// Header prints a colorized step header in the test logs
func (s *BaseChatSuite) Header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

func (s *BaseChatSuite) Token(userID string) string {
	token, err := s.tokens.GenerateToken(userID)
	s.Require().NoError(err)
	return token
}

// Call performs an authenticated REST call, decodes the body into out when not nil
// and returns the status code.
func (s *BaseChatSuite) Call(method, path, userID string, body, out any) int {
	t := s.T()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, "http://"+s.Config.ChatAddr+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+s.Token(userID))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	s.Require().NoError(err, "Failed to reach chat server at "+s.Config.ChatAddr)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	logBuilder := strings.Builder{}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		fmt.Fprintln(&logBuilder, "\nRESPONSE:")
		fmt.Fprintln(&logBuilder, string(raw))
	}
	t.Log(logBuilder.String())

	if out != nil && resp.StatusCode < 300 {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
	return resp.StatusCode
}

// Dial opens a websocket on a room for userID, closed at the end of the test.
func (s *BaseChatSuite) Dial(roomID, userID string) *websocket.Conn {
	u := url.URL{Scheme: "ws", Host: s.Config.ChatAddr, Path: "/ws/" + roomID}
	header := http.Header{"Authorization": []string{"Bearer " + s.Token(userID)}}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	s.Require().NoError(err, "websocket handshake refused")
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

// ReadEvent waits for the next server frame and decodes it as a generic json object
func (s *BaseChatSuite) ReadEvent(conn *websocket.Conn, timeout time.Duration) map[string]any {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(timeout)))
	var event map[string]any
	s.Require().NoError(conn.ReadJSON(&event))
	if s.Config.DebugJSON {
		s.T().Logf("WS EVENT: %v", event)
	}
	return event
}

// GrpcConn initializes a gRPC connection with logging, colors, and JSON debugging
func (s *BaseChatSuite) GrpcConn(t *testing.T, name string, addr string) *grpc.ClientConn {
	s.Header(t, name)

	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		Multiline:       true,
		EmitUnpopulated: true,
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))

			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, marshaler.Format(req.(proto.Message)))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+addr)
	return conn
}
