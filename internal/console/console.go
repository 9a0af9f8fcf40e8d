package console

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/types"
)

const (
	RequesterID   = "console"
	RequesterName = "ConsoleUser"
)

const menu = `
=== Bybit ticker collector ===
1. Query ticker
2. Statistics
3. Recent requests
4. Exit
> `

// Console is the interactive operator menu.
type Console struct {
	facade   interfaces.QueryFacade
	requests interfaces.RequestLog
	in       io.Reader
	out      io.Writer
	now      func() time.Time
}

// New reads commands from in and writes replies to out.
func New(facade interfaces.QueryFacade, requests interfaces.RequestLog, in io.Reader, out io.Writer) *Console {
	return &Console{
		facade:   facade,
		requests: requests,
		in:       in,
		out:      out,
		now:      time.Now,
	}
}

// Run serves the menu until the operator exits, input ends or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	next := func() (string, bool, error) {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case line, ok := <-lines:
			return line, ok, nil
		}
	}

	for {
		fmt.Fprint(c.out, menu)
		choice, ok, err := next()
		if err != nil || !ok {
			return err
		}

		switch strings.ToLower(choice) {
		case "1":
			fmt.Fprint(c.out, "Symbol (BTC, ETH, BTCUSDT...): ")
			text, ok, err := next()
			if err != nil || !ok {
				return err
			}
			c.query(ctx, text)
		case "2":
			c.printJSON(c.facade.Stats())
		case "3":
			c.recent()
		case "4", "exit", "quit":
			fmt.Fprintln(c.out, "Bye.")
			return nil
		case "":
		default:
			fmt.Fprintf(c.out, "Unknown option %q\n", choice)
		}
	}
}

func (c *Console) query(ctx context.Context, text string) {
	if text == "" {
		fmt.Fprintln(c.out, "Empty symbol.")
		return
	}
	res := c.facade.Query(ctx, types.QueryRequest{
		Text:          text,
		RequesterID:   RequesterID,
		RequesterName: RequesterName,
		Origin:        types.OriginConsole,
	})
	c.printJSON(res)
}

func (c *Console) recent() {
	records := c.requests.Recent()
	if len(records) == 0 {
		fmt.Fprintln(c.out, "No requests yet.")
		return
	}
	now := c.now()
	for _, r := range records {
		fmt.Fprintf(c.out, "%s (%s) [%s]: %s - %ds ago\n",
			r.Name, r.RequesterID, r.Origin, r.Text, int(now.Sub(r.Timestamp).Seconds()))
	}
}

func (c *Console) printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(c.out, "encode result: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, string(b))
}
