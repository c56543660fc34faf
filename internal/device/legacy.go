package device

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-routeros/routeros/v3"
)

// LegacyClient speaks the connection-oriented binary command API of older
// firmware. The protocol is connection-stateful, so every logical operation
// dials, logs in, runs its sentence and closes; no connection survives a
// call, even on error paths.
type LegacyClient struct {
	host     string
	port     int
	useTLS   bool
	username string
	password string
	timeout  time.Duration
}

// NewLegacyClient creates a legacy protocol client
func NewLegacyClient(host string, port int, useTLS bool, username, password string, timeout time.Duration) *LegacyClient {
	return &LegacyClient{
		host:     host,
		port:     port,
		useTLS:   useTLS,
		username: username,
		password: password,
		timeout:  timeout,
	}
}

// Get implements Client
func (c *LegacyClient) Get(ctx context.Context, path string, query map[string]string) ([]Record, error) {
	words := []string{path + "/print"}
	for k, v := range query {
		words = append(words, "?"+k+"="+v)
	}
	return c.run(ctx, words)
}

// Add implements Client
func (c *LegacyClient) Add(ctx context.Context, path string, params Record) (Record, error) {
	words := append([]string{path + "/add"}, attributeWords(params)...)

	reply, err := c.runReply(ctx, words)
	if err != nil {
		return nil, err
	}

	record := Record{}
	if reply.Done != nil {
		if id, ok := reply.Done.Map["ret"]; ok {
			record["ret"] = id
			record["id"] = id
		}
	}
	return record, nil
}

// Set implements Client
func (c *LegacyClient) Set(ctx context.Context, path, id string, params Record) (Record, error) {
	words := append([]string{path + "/set", "=.id=" + id}, attributeWords(params)...)
	if _, err := c.run(ctx, words); err != nil {
		return nil, err
	}
	return Record{"id": id}, nil
}

// Remove implements Client
func (c *LegacyClient) Remove(ctx context.Context, path, id string) error {
	_, err := c.run(ctx, []string{path + "/remove", "=.id=" + id})
	return err
}

// Command implements Client
func (c *LegacyClient) Command(ctx context.Context, path string, params Record) ([]Record, error) {
	words := append([]string{path}, attributeWords(params)...)
	return c.run(ctx, words)
}

// run executes one sentence and converts the reply to normalized records
func (c *LegacyClient) run(ctx context.Context, words []string) ([]Record, error) {
	reply, err := c.runReply(ctx, words)
	if err != nil {
		return nil, err
	}
	return replyRecords(reply), nil
}

// replyRecords converts reply sentences to normalized records. An empty
// reply, including the zero-match quirk case, yields an empty result set.
func replyRecords(reply *routeros.Reply) []Record {
	records := make([]Record, 0, len(reply.Re))
	for _, sentence := range reply.Re {
		records = append(records, NormalizeLegacy(sentence.Map))
	}
	return records
}

// runReply brackets one connect/command/close cycle around a sentence
func (c *LegacyClient) runReply(ctx context.Context, words []string) (*routeros.Reply, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, &DeviceError{Message: err.Error()}
	}

	client, err := routeros.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, &DeviceError{Message: err.Error()}
	}
	defer client.Close()

	if err := client.Login(c.username, c.password); err != nil {
		return nil, &DeviceError{Message: "login failed: " + err.Error()}
	}

	reply, err := client.RunArgs(words)
	if err != nil {
		if isEmptyReply(err) {
			return &routeros.Reply{}, nil
		}
		return nil, &DeviceError{Message: deviceMessage(err)}
	}
	return reply, nil
}

// dial opens the raw control socket, plain or TLS
func (c *LegacyClient) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	dialer := &net.Dialer{Timeout: c.timeout}

	if c.useTLS {
		return tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{InsecureSkipVerify: true})
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

// attributeWords renders params as "=key=value" words, with bools in the
// protocol's yes/no form
func attributeWords(params Record) []string {
	words := make([]string, 0, len(params))
	for k, v := range params {
		words = append(words, "="+k+"="+legacyValue(v))
	}
	return words
}

// legacyValue renders one attribute value for the wire
func legacyValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprint(t)
	}
}

// isEmptyReply recognizes the protocol quirk where a query with zero
// matches is reported as an error instead of an empty result set
func isEmptyReply(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such item") || strings.Contains(msg, "empty reply")
}

// deviceMessage strips the library's framing from a device-reported error
func deviceMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "from RouterOS device: "); i >= 0 {
		return msg[i+len("from RouterOS device: "):]
	}
	return msg
}
