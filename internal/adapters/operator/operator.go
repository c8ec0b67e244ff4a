// Package operator watches operator input for the quit key.
package operator

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// WatchQuit reads lines from r and calls cancel when a line equals key.
// It returns when the key is seen, r is exhausted, or ctx is done.
// End of input does not cancel: a detached stdin must not end the session.
func WatchQuit(ctx context.Context, r io.Reader, key string, cancel context.CancelFunc) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.EqualFold(strings.TrimSpace(line), key) {
				cancel()
				return
			}
		}
	}
}
