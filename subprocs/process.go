package subprocs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
)

const mailboxSize = 1024

// Response is one message from the child, delivered through the mailbox.
type Response struct {
	Value signals.Value
	Err   error
	// End marks the last message; no more responses follow.
	End bool
}

// Process is a running child. All methods except Send and Kill may be called only from the polling goroutine.
type Process struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdout   io.ReadCloser
	requests chan []byte
	mailbox  chan Response
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

// Start launches src with args. Responses are decoded per responseType.
func Start(ctx context.Context, src string, args []string, responseType actions.ResponseType) (*Process, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, src, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, actions.Resourcef("stdin of %s: %v", src, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, actions.Resourcef("stdout of %s: %v", src, err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, actions.Resourcef("start %s: %v", src, err)
	}
	p := &Process{
		cmd:      cmd,
		stdin:    stdin,
		stdout:   stdout,
		requests: make(chan []byte, mailboxSize),
		mailbox:  make(chan Response, mailboxSize),
		cancel:   cancel,
	}
	p.wg.Add(2)
	go p.write(ctx)
	go p.read(stdout, responseType)
	return p, nil
}

func (p *Process) write(ctx context.Context) {
	defer p.wg.Done()
	defer p.stdin.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-p.requests:
			if !ok {
				return
			}
			if _, err := p.stdin.Write(req); err != nil {
				return
			}
		}
	}
}

func (p *Process) read(stdout io.Reader, responseType actions.ResponseType) {
	defer p.wg.Done()
	defer close(p.mailbox)
	reader := bufio.NewReader(stdout)
	var all strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			switch responseType {
			case actions.ResponseRaw:
				p.mailbox <- Response{Value: signals.Text(strings.TrimRight(line, "\r\n"))}
			case actions.ResponseRawAll:
				all.WriteString(line)
			default:
				value, perr := ParseResponse(line)
				if errors.Is(perr, ErrEnd) {
					p.mailbox <- Response{End: true}
					return
				}
				p.mailbox <- Response{Value: value, Err: perr}
			}
		}
		if err != nil {
			if responseType == actions.ResponseRawAll {
				p.mailbox <- Response{Value: signals.Text(all.String())}
				p.mailbox <- Response{End: true}
				return
			}
			if responseType == actions.ResponseRaw {
				p.mailbox <- Response{End: true}
				return
			}
			p.mailbox <- Response{
				Err: actions.Runtimef("child process exited without end"),
				End: true,
			}
			return
		}
	}
}

var ErrBusy = errors.New("request queue full")

// Send queues a request without blocking.
func (p *Process) Send(vars map[string]signals.Value) error {
	req, err := EncodeRequest(vars)
	if err != nil {
		return err
	}
	select {
	case p.requests <- req:
		return nil
	default:
		return ErrBusy
	}
}

// Poll returns the next response if one is ready.
func (p *Process) Poll() (Response, bool) {
	select {
	case r, ok := <-p.mailbox:
		if !ok {
			return Response{End: true}, true
		}
		return r, true
	default:
		return Response{}, false
	}
}

// Kill stops the child and waits for its goroutines.
func (p *Process) Kill() {
	p.once.Do(func() {
		p.cancel()
		// grandchildren may hold the pipe open after the child died
		_ = p.stdout.Close()
		// unblock the reader if the mailbox is full
		go func() {
			for range p.mailbox {
			}
		}()
		p.wg.Wait()
		_ = p.cmd.Wait()
	})
}

func (p *Process) String() string {
	return fmt.Sprintf("process %s", p.cmd.Path)
}
