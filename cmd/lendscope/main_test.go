package main

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"lendingScope/internal/metrics"
	"lendingScope/internal/model"
	"lendingScope/internal/txn"
)

func parseActionFlags(t *testing.T, args ...string) (txn.Request, error) {
	t.Helper()
	cmd := newActionCmd(txn.ActionDeposit)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return buildRequest(cmd, txn.ActionDeposit)
}

func TestBuildRequest(t *testing.T) {
	req, err := parseActionFlags(t, "--asset=usdc", "--amount=1.5")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.Visibility != txn.Public || req.Recipient != txn.RecipientSelf || req.Amount != "1.5" {
		t.Fatalf("unexpected request: %+v", req)
	}

	identity := "0x2222222222222222222222222222222222222222"
	req, err = parseActionFlags(t, "--asset=usdc", "--amount=1", "--private", "--recipient="+identity)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.Visibility != txn.Private || req.Recipient != txn.RecipientStored || req.StoredIdentity != common.HexToAddress(identity) {
		t.Fatalf("unexpected private request: %+v", req)
	}

	req, err = parseActionFlags(t, "--asset=usdc", "--amount=1", "--private", "--new-recipient")
	if err != nil || req.Recipient != txn.RecipientNew {
		t.Fatalf("new recipient: %+v %v", req, err)
	}
}

func TestBuildRequestRejects(t *testing.T) {
	cases := [][]string{
		{"--amount=1"},
		{"--asset=usdc", "--amount=1", "--new-recipient"},
		{"--asset=usdc", "--amount=1", "--private", "--new-recipient", "--recipient=0x2222222222222222222222222222222222222222"},
		{"--asset=usdc", "--amount=1", "--private", "--recipient=nope"},
	}
	for _, args := range cases {
		if _, err := parseActionFlags(t, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

type staticViews struct {
	view model.View
}

func (s staticViews) Snapshot() model.View { return s.view }

func TestRouter(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	m.ObserveTransaction("deposit", "public", "ok")

	account := common.HexToAddress("0x1111111111111111111111111111111111111111")
	views := staticViews{view: model.View{Account: account, Assets: []model.Asset{}, Position: model.EmptyPosition()}}
	srv := httptest.NewServer(newRouter(views, registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/position")
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Account  common.Address `json:"account"`
		Position struct {
			HealthFactor string `json:"health_factor"`
		} `json:"position"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Account != account || body.Position.HealthFactor != "inf" {
		t.Fatalf("unexpected body: %+v", body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(buf.String(), "lendscope_transactions_total") {
		t.Fatalf("metrics missing transaction counter")
	}
}

func TestSnapshotLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "positions.jsonl")
	account := common.HexToAddress("0x1111111111111111111111111111111111111111")
	view := model.View{Account: account, Assets: []model.Asset{}, Position: model.EmptyPosition()}
	at := time.Unix(1_700_000_000, 0)

	for i := 0; i < 2; i++ {
		log, err := openSnapshotLog(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := log.Append(at.Add(time.Duration(i)*time.Second), view); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := log.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record struct {
			ObservedAt time.Time `json:"observed_at"`
			View       struct {
				Account  common.Address `json:"account"`
				Position struct {
					HealthFactor string `json:"health_factor"`
				} `json:"position"`
			} `json:"view"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		if !record.ObservedAt.Equal(at.Add(time.Duration(lines)*time.Second)) || record.View.Account != account || record.View.Position.HealthFactor != "inf" {
			t.Fatalf("unexpected record %d: %+v", lines, record)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected two records, got %d", lines)
	}
}
