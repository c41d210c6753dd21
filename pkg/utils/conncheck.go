package utils

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/mpapenbr/racesim/log"
)

const defaultNatsPort = "4222"

// WaitForTCP polls addr until a tcp connection succeeds, timeout passed or
// ctx is done
func WaitForTCP(ctx context.Context, addr string, timeout time.Duration) error {
	start := time.Now()
	log.Debug("wait for tcp connection",
		log.String("addr", addr),
		log.String("timeout", timeout.String()))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			log.Debug("tcp connection successful",
				log.String("addr", addr),
				log.String("duration", time.Since(start).String()))
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s could not be reached after %v", addr, time.Since(start).Round(time.Millisecond))
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// ExtractFromNatsURL returns host:port of the first server of a nats url
// list (for example "nats://user:pw@host:4222,nats://other:4222").
// A missing port defaults to 4222.
func ExtractFromNatsURL(natsURL string) string {
	first := strings.TrimSpace(strings.Split(natsURL, ",")[0])
	if !strings.Contains(first, "://") {
		first = "nats://" + first
	}
	u, err := url.Parse(first)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		port = defaultNatsPort
	}
	return net.JoinHostPort(u.Hostname(), port)
}
