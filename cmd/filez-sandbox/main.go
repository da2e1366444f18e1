// Command filez-sandbox runs a local, in-memory Filez deployment speaking the
// vendor's v2 REST protocol. Point FILEZ_HOST at it to develop against the
// SDK without real credentials.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/filez-io/filez_sdk_go/internal/sandbox"
	"github.com/filez-io/filez_sdk_go/pkg/filez"
)

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	seed := flag.String("seed", "", "path to JSON seed file (users, teams, files)")
	appKey := flag.String("app-key", "sandbox", "app key expected on /oauth/token")
	appSecret := flag.String("app-secret", "sandbox", "app secret expected on /oauth/token")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	flag.Parse()

	backend := filez.NewMockBackend()
	if *seed != "" {
		if err := backend.SeedFromFile(*seed); err != nil {
			log.Fatalf("apply seed: %v", err)
		}
	}

	failRate, failCode, err := parseFailFlag(*fail)
	if err != nil {
		log.Fatalf("parse fail flag: %v", err)
	}

	srv, err := sandbox.New(backend, sandbox.Options{
		AppKey:    *appKey,
		AppSecret: *appSecret,
		Latency:   *latency,
		FailRate:  failRate,
		FailCode:  failCode,
	})
	if err != nil {
		log.Fatalf("init sandbox: %v", err)
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	log.Printf("filez-sandbox listening on %s", *addr)
	fmt.Println()
	fmt.Println("export FILEZ_MODE=http")
	fmt.Printf("export FILEZ_HOST=%s\n", host)
	fmt.Printf("export FILEZ_APP_KEY=%s\n", *appKey)
	fmt.Printf("export FILEZ_APP_SECRET=%s\n", *appSecret)
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

func parseFailFlag(raw string) (rate float64, code int, err error) {
	if strings.TrimSpace(raw) == "" {
		return 0, 0, nil
	}
	code = http.StatusInternalServerError
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return 0, 0, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			rate, err = strconv.ParseFloat(strings.TrimSpace(keyVal[1]), 64)
			if err != nil {
				return 0, 0, err
			}
		case "code":
			code, err = strconv.Atoi(strings.TrimSpace(keyVal[1]))
			if err != nil {
				return 0, 0, err
			}
		default:
			return 0, 0, fmt.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return rate, code, nil
}
