package main

import (
	"context"
	"testing"
)

func TestGetClient_ExplicitProxy(t *testing.T) {
	oldURL, oldRetries := proxyURL, retries
	defer func() { proxyURL, retries = oldURL, oldRetries }()

	proxyURL = "http://192.168.1.5:5030/"
	retries = 1

	c, err := getClient(context.Background())
	if err != nil {
		t.Fatalf("getClient() error: %v", err)
	}
	if c.BaseURL != "http://192.168.1.5:5030" {
		t.Errorf("BaseURL = %q", c.BaseURL)
	}
	if c.MaxRetries != 1 {
		t.Errorf("MaxRetries = %d, want 1", c.MaxRetries)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"find", "devices", "device", "convert", "watch", "scan", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
