// cmd/ask/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"chatbot/models"

	"github.com/fatih/color"
	"github.com/go-resty/resty/v2"
)

type askResponse struct {
	RedirectURL string `json:"redirect_url"`
	Detail      string `json:"detail"`
}

type apiClient struct {
	http *resty.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(timeout),
	}
}

// ask submits message and returns the conversation path, even when the
// server reports a failed completion.
func (c *apiClient) ask(message string) (string, error) {
	var out askResponse
	resp, err := c.http.R().
		SetQueryParam("message", message).
		SetResult(&out).
		SetError(&out).
		Post("/")
	if err != nil {
		return "", fmt.Errorf("submitting message: %w", err)
	}
	if resp.IsError() {
		if out.RedirectURL != "" {
			return out.RedirectURL, fmt.Errorf("server returned %d: %s", resp.StatusCode(), out.Detail)
		}
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode(), out.Detail)
	}
	return out.RedirectURL, nil
}

func (c *apiClient) conversation(path string) (models.Conversation, error) {
	var conv models.Conversation
	resp, err := c.http.R().SetResult(&conv).Get(path)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("fetching conversation: %w", err)
	}
	if resp.IsError() {
		return models.Conversation{}, fmt.Errorf("server returned %d for %s", resp.StatusCode(), path)
	}
	return conv, nil
}

func main() {
	server := flag.String("server", getEnv("CHATBOT_URL", "http://localhost:8080"), "Chatbot HTTP URL")
	timeout := flag.Duration("timeout", 2*time.Minute, "Request timeout")
	flag.Parse()

	message := strings.Join(flag.Args(), " ")
	if message == "" {
		fmt.Fprintln(os.Stderr, "usage: ask [-server URL] <message>")
		os.Exit(2)
	}

	client := newAPIClient(*server, *timeout)

	path, err := client.ask(message)
	if err != nil {
		color.Red("Error: %v\n", err)
		if path == "" {
			os.Exit(1)
		}
	}

	conv, err := client.conversation(path)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	printConversation(conv)
}

func printConversation(conv models.Conversation) {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	yellow.Printf("conversation %s\n", conv.ID)
	for _, msg := range conv.Messages {
		label := cyan
		if msg.Source == models.SourceBot {
			label = green
		}
		label.Printf("[%s %s] ", msg.Source, msg.Timestamp.Format(time.RFC3339))
		fmt.Println(msg.Text)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
