package pubsub

import (
	"context"
	"testing"

	"github.com/kledje/storefront-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"shop", "orders", "projects/shop/topics/orders"},
		{"shop", " projects/other/topics/orders ", "projects/other/topics/orders"},
		{"", "orders", ""},
		{"shop", "", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "shop"}, config.PubSubConfig{}, nil); err != errTopicRequired {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("expected nil publisher from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on nil client to fail")
	}
}
