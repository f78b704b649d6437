//go:build integration

package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/courseloop/order-intake/internal/accounts"
	"github.com/courseloop/order-intake/internal/domain"
	"github.com/courseloop/order-intake/internal/identity"
	"github.com/courseloop/order-intake/internal/messaging"
	"github.com/courseloop/order-intake/internal/orders"
	"github.com/courseloop/order-intake/internal/webhook"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newIntakeHandler(db *PostgresSetup, t *testing.T) (*webhook.Handler, *orders.OrderRepository, func()) {
	t.Helper()

	conn, err := OpenDB(db.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	logger := discardLogger()
	orderRepo := orders.NewOrderRepository(conn)
	accountRepo := accounts.NewAccountRepository(conn)
	resolver := identity.NewResolver(accountRepo, logger)
	handler := webhook.NewHandler(orderRepo, resolver, nil, "", nil, logger)

	return handler, orderRepo, func() { _ = conn.Close() }
}

func postOrder(handler *webhook.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.HandleReceive(rec, req)
	return rec
}

func seedAccount(t *testing.T, db *PostgresSetup, id, email, fullName string) {
	t.Helper()

	conn, err := OpenDB(db.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_, err = conn.Exec(`INSERT INTO accounts (id, email, full_name) VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))`, id, email, fullName)
	if err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
}

const orderBody = `{
	"email": "Jane@Example.com",
	"name": "Jane Doe",
	"order": {"line_items": [{"meta": {"order_id": "ext-100"}}]}
}`

func TestWebhookIdempotency(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	handler, repo, closeDB := newIntakeHandler(pg, t)
	defer closeDB()

	first := postOrder(handler, orderBody)
	if first.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d: %s", first.Code, first.Body.String())
	}

	var firstResp map[string]any
	if err := json.Unmarshal(first.Body.Bytes(), &firstResp); err != nil {
		t.Fatalf("failed to decode first response: %v", err)
	}
	if _, ok := firstResp["deduplicated"]; ok {
		t.Fatal("first delivery must not be deduplicated")
	}

	second := postOrder(handler, orderBody)
	if second.Code != http.StatusOK {
		t.Fatalf("second delivery: expected 200, got %d", second.Code)
	}

	var secondResp map[string]any
	if err := json.Unmarshal(second.Body.Bytes(), &secondResp); err != nil {
		t.Fatalf("failed to decode second response: %v", err)
	}
	if secondResp["deduplicated"] != true {
		t.Fatal("second delivery must carry deduplicated flag")
	}
	if secondResp["order_id"] != firstResp["order_id"] {
		t.Errorf("dedup must return the original order id: %v vs %v", secondResp["order_id"], firstResp["order_id"])
	}

	stored, err := repo.FindByExternalID(ctx, "ext-100")
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if stored == nil {
		t.Fatal("order not found")
	}
	if stored.CustomerEmail != "jane@example.com" {
		t.Errorf("expected normalized email, got %q", stored.CustomerEmail)
	}
}

func TestWebhookRaceSafety(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	handler, _, closeDB := newIntakeHandler(pg, t)
	defer closeDB()

	const deliveries = 8

	var wg sync.WaitGroup
	responses := make([]*httptest.ResponseRecorder, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i] = postOrder(handler, orderBody)
		}(i)
	}
	wg.Wait()

	inserted := 0
	for i, rec := range responses {
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("delivery %d: failed to decode response: %v", i, err)
		}
		if _, ok := resp["deduplicated"]; !ok {
			inserted++
		}
	}
	if inserted != 1 {
		t.Fatalf("expected exactly one first-time response, got %d", inserted)
	}

	conn, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = conn.Close() }()

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM orders WHERE external_order_id = 'ext-100'`).Scan(&count); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one persisted row, got %d", count)
	}
}

func TestResolverAgainstSeededAccounts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	seedAccount(t, pg, "acc-1", "jane@example.com", "Jane Doe")
	seedAccount(t, pg, "acc-2", "", "Robert Smith")

	handler, repo, closeDB := newIntakeHandler(pg, t)
	defer closeDB()

	t.Run("email match", func(t *testing.T) {
		rec := postOrder(handler, `{"email": "JANE@example.com", "order": {"source_id": "s1", "created_at": "t1"}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["match_method"] != "email" {
			t.Errorf("expected email match, got %v", resp["match_method"])
		}

		stored, err := repo.FindByExternalID(ctx, "s1_t1")
		if err != nil || stored == nil {
			t.Fatalf("order not stored: %v", err)
		}
		if stored.UserID != "acc-1" {
			t.Errorf("expected user acc-1, got %q", stored.UserID)
		}
	})

	t.Run("fuzzy name match", func(t *testing.T) {
		rec := postOrder(handler, `{"email": "bob@elsewhere.com", "first_name": "Bob", "last_name": "Smith", "order": {"source_id": "s2", "created_at": "t2"}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["match_method"] != "name_fuzzy(score=80)" {
			t.Errorf("expected name_fuzzy(score=80), got %v", resp["match_method"])
		}
	})

	t.Run("unresolved stores null user", func(t *testing.T) {
		rec := postOrder(handler, `{"email": "stranger@example.com", "order": {"source_id": "s3", "created_at": "t3"}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["match_method"] != "none" {
			t.Errorf("expected none, got %v", resp["match_method"])
		}

		stored, err := repo.FindByExternalID(ctx, "s3_t3")
		if err != nil || stored == nil {
			t.Fatalf("order not stored: %v", err)
		}
		if stored.UserID != "" {
			t.Errorf("expected unresolved order, got user %q", stored.UserID)
		}
	})
}

func TestOrderReceivedEventPublished(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	conn, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = conn.Close() }()

	logger := discardLogger()
	producer := messaging.NewProducer(brokers, "order.received")
	defer func() { _ = producer.Close() }()

	orderRepo := orders.NewOrderRepository(conn)
	accountRepo := accounts.NewAccountRepository(conn)
	resolver := identity.NewResolver(accountRepo, logger)
	handler := webhook.NewHandler(orderRepo, resolver, producer, "", nil, logger)

	rec := postOrder(handler, orderBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	consumer := messaging.NewConsumer(brokers, "order.received", "integration-test")
	defer func() { _ = consumer.Close() }()

	received := make(chan domain.OrderReceivedEvent, 1)
	consumeCtx, stopConsume := context.WithCancel(ctx)
	defer stopConsume()

	go func() {
		_ = consumer.Consume(consumeCtx, func(_ context.Context, payload []byte) error {
			var event domain.OrderReceivedEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return err
			}
			received <- event
			return nil
		})
	}()

	select {
	case event := <-received:
		if event.CustomerEmail != "jane@example.com" {
			t.Errorf("expected normalized email in event, got %q", event.CustomerEmail)
		}
		if event.OrderID == "" {
			t.Error("expected order id in event")
		}
	case <-time.After(60 * time.Second):
		t.Fatal("timed out waiting for order.received event")
	}
}
