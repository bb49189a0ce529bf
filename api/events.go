package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/cspr-tools/cspr/crypto"
)

// Channel is an event stream of a node.
type Channel string

const (
	ChannelMain    Channel = "main"
	ChannelDeploys Channel = "deploys"
	ChannelSigs    Channel = "sigs"
)

// EventFilter selects the events of a subscription.
type EventFilter struct {
	Channel Channel
	// StartFrom replays events from this ID, if set.
	StartFrom *uint64
}

// Event is a single server sent event. Type is the single top level key of
// the payload, such as "DeployProcessed", and Data is its value.
type Event struct {
	ID   *uint64
	Type string
	Data json.RawMessage
}

// DeployProcessed is the Data of a "DeployProcessed" event.
type DeployProcessed struct {
	DeployHash      crypto.Digest              `json:"deploy_hash"`
	Account         crypto.PublicKey           `json:"account"`
	BlockHash       crypto.Digest              `json:"block_hash"`
	ExecutionResult map[string]json.RawMessage `json:"execution_result"`
}

// Failed returns true if the deploy was executed with a failure result.
func (p DeployProcessed) Failed() bool {
	_, ok := p.ExecutionResult["Failure"]
	return ok
}

// DeployProcessed parses the Data of an event of that type.
func (e Event) DeployProcessed() (DeployProcessed, error) {
	var p DeployProcessed
	if e.Type != "DeployProcessed" {
		return p, fmt.Errorf("event type is %v", e.Type)
	}
	err := json.Unmarshal(e.Data, &p)
	return p, err
}

// BlockAdded is the Data of a "BlockAdded" event.
type BlockAdded struct {
	BlockHash crypto.Digest `json:"block_hash"`
	Block     Block         `json:"block"`
}

// BlockAdded parses the Data of an event of that type.
func (e Event) BlockAdded() (BlockAdded, error) {
	var b BlockAdded
	if e.Type != "BlockAdded" {
		return b, fmt.Errorf("event type is %v", e.Type)
	}
	err := json.Unmarshal(e.Data, &b)
	return b, err
}

// AwaitBlocks waits for n blocks to be added after it subscribes to the main
// event stream and returns the last of them.
func (c *Client) AwaitBlocks(ctx context.Context, n int) (*Block, error) {
	if n < 1 {
		return nil, fmt.Errorf("invalid block count: %v", n)
	}
	return c.awaitBlock(ctx, func(*Block) bool {
		n--
		return n == 0
	})
}

// AwaitBlockHeight waits until a block at height or above has been added and
// returns it. If the latest block is already at height it is returned
// without subscribing.
func (c *Client) AwaitBlockHeight(ctx context.Context,
	height uint64) (*Block, error) {
	latest, err := c.GetBlock(ctx, nil)
	if err != nil {
		return nil, err
	}
	if latest.Header.Height >= height {
		return latest, nil
	}
	return c.awaitBlock(ctx, func(b *Block) bool {
		return b.Header.Height >= height
	})
}

func (c *Client) awaitBlock(ctx context.Context,
	done func(*Block) bool) (*Block, error) {
	s, err := c.Subscribe(ctx, EventFilter{Channel: ChannelMain})
	if err != nil {
		return nil, err
	}
	defer s.Close()
	for e := range s.Events() {
		if e.Type != "BlockAdded" {
			continue
		}
		added, err := e.BlockAdded()
		if err != nil {
			return nil, err
		}
		log.With("height", added.Block.Header.Height).Debug("block added")
		if done(&added.Block) {
			return &added.Block, nil
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("event stream closed")
}

// maxEventSize bounds a single line of the event stream.
const maxEventSize = 16 << 20

// Subscription delivers the events of a stream in order. It cannot be
// restarted once it ends.
type Subscription struct {
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Subscribe to the event stream of filter.Channel at server, such as
// "http://localhost:9999".
func Subscribe(ctx context.Context, server string,
	filter EventFilter) (*Subscription, error) {
	return subscribe(ctx, &http.Client{}, server, filter)
}

func subscribe(ctx context.Context, hc *http.Client, server string,
	filter EventFilter) (*Subscription, error) {
	switch filter.Channel {
	case ChannelMain, ChannelDeploys, ChannelSigs:
	default:
		return nil, fmt.Errorf("unknown event channel %q", filter.Channel)
	}
	u, err := url.Parse(strings.TrimRight(server, "/") +
		"/events/" + string(filter.Channel))
	if err != nil {
		return nil, err
	}
	if filter.StartFrom != nil {
		q := u.Query()
		q.Set("start_from", strconv.FormatUint(*filter.StartFrom, 10))
		u.RawQuery = q.Encode()
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	res, err := hc.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		cancel()
		return nil, fmt.Errorf("%v: %v", u, res.Status)
	}
	log.With("url", u).Debug("subscribed")

	s := &Subscription{
		events: make(chan Event),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	in := make(chan Event)
	go s.read(ctx, res, in)
	go s.pump(ctx, in)
	return s, nil
}

// Events returns the channel of events. It is closed when the stream ends,
// after which Err reports why.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Err returns the error that ended the stream, if any. It returns nil while
// the stream is open and after Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription and waits for it to release the connection.
// It is safe to call more than once.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// read parses the stream into in and closes in when the stream ends.
func (s *Subscription) read(ctx context.Context, res *http.Response,
	in chan<- Event) {
	defer close(in)
	defer res.Body.Close()

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	var data bytes.Buffer
	var id *uint64
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			field, value := line, ""
			if i := strings.IndexByte(line, ':'); i >= 0 {
				field, value = line[:i], strings.TrimPrefix(line[i+1:], " ")
			}
			switch field {
			case "data":
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(value)
			case "id":
				if n, err := strconv.ParseUint(value, 10, 64); err == nil {
					id = &n
				}
			}
			continue
		}

		// A blank line dispatches the event.
		if data.Len() == 0 {
			continue
		}
		e, err := parseEvent(id, data.Bytes())
		data.Reset()
		id = nil
		if err != nil {
			s.setErr(err)
			return
		}
		select {
		case in <- e:
		case <-ctx.Done():
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	if err := scanner.Err(); err != nil {
		s.setErr(err)
		return
	}
	s.setErr(fmt.Errorf("event stream closed by server"))
}

func parseEvent(id *uint64, data []byte) (Event, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return Event{}, fmt.Errorf("event: %w", err)
	}
	if len(payload) != 1 {
		return Event{}, fmt.Errorf("event: expected a single key object")
	}
	e := Event{ID: id}
	for e.Type, e.Data = range payload {
	}
	return e, nil
}

// pump forwards events from in to s.events, queueing them so that a slow
// reader never blocks the stream.
func (s *Subscription) pump(ctx context.Context, in <-chan Event) {
	defer close(s.done)
	defer close(s.events)
	var queue []Event
	for in != nil || len(queue) > 0 {
		var out chan<- Event
		var next Event
		if len(queue) > 0 {
			out, next = s.events, queue[0]
		}
		select {
		case e, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, e)
		case out <- next:
			queue = queue[1:]
		case <-ctx.Done():
			return
		}
	}
}
