package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"chatbot/controllers"
	"chatbot/models"
	"chatbot/routes"
	"chatbot/services"
)

type stubCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubCompleter) FetchCompletion(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

type failingService struct{}

func (failingService) Ask(context.Context, string) (models.Conversation, error) {
	return models.Conversation{}, errors.New("boom")
}

func (failingService) Conversation(context.Context, string) (models.Conversation, error) {
	return models.Conversation{}, errors.New("boom")
}

var _ = Describe("ChatController", func() {
	var (
		router    *gin.Engine
		store     *services.MemoryStore
		completer *stubCompleter
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		store = services.NewMemoryStore()
		completer = &stubCompleter{reply: "Hi there"}
		routes.SetupRouter(router, controllers.NewChatController(services.NewChatService(store, completer)))
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	ask := func(message string) *httptest.ResponseRecorder {
		return serve(httptest.NewRequest(http.MethodPost, "/?message="+url.QueryEscape(message), nil))
	}

	redirectOf := func(w *httptest.ResponseRecorder) string {
		var resp map[string]string
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["redirect_url"]).To(HavePrefix("/conversation/"))
		return resp["redirect_url"]
	}

	fetch := func(path string) (int, models.Conversation) {
		w := serve(httptest.NewRequest(http.MethodGet, path, nil))
		var conv models.Conversation
		if w.Code == http.StatusOK {
			Expect(json.Unmarshal(w.Body.Bytes(), &conv)).To(Succeed())
		}
		return w.Code, conv
	}

	Describe("POST /", func() {
		It("stores the user message and the trimmed bot reply", func() {
			w := ask("Hello")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(completer.prompts).To(Equal([]string{"Hello"}))

			code, conv := fetch(redirectOf(w))
			Expect(code).To(Equal(http.StatusOK))
			Expect(conv.Messages).To(HaveLen(2))
			Expect(conv.Messages[0].Text).To(Equal("Hello"))
			Expect(conv.Messages[0].Source).To(Equal(models.SourceUser))
			Expect(conv.Messages[1].Text).To(Equal("Hi there"))
			Expect(conv.Messages[1].Source).To(Equal(models.SourceBot))
			Expect(conv.Messages[1].Timestamp).NotTo(BeTemporally("<", conv.Messages[0].Timestamp))
		})

		It("accepts the message as a JSON body", func() {
			body, _ := json.Marshal(map[string]string{"message": "Hello"})
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusOK))

			_, conv := fetch(redirectOf(w))
			Expect(conv.Messages[0].Text).To(Equal("Hello"))
		})

		It("accepts the message as a form field", func() {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("message=Hello"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusOK))

			_, conv := fetch(redirectOf(w))
			Expect(conv.Messages[0].Text).To(Equal("Hello"))
		})

		It("returns 400 when the message is missing", func() {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{}`))
			req.Header.Set("Content-Type", "application/json")

			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(completer.prompts).To(BeEmpty())
			Expect(store.Len()).To(BeZero())
		})

		It("accepts an empty message from the query string", func() {
			w := serve(httptest.NewRequest(http.MethodPost, "/?message=", nil))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(completer.prompts).To(Equal([]string{""}))

			code, conv := fetch(redirectOf(w))
			Expect(code).To(Equal(http.StatusOK))
			Expect(conv.Messages).To(HaveLen(2))
			Expect(conv.Messages[0].Text).To(BeEmpty())
			Expect(conv.Messages[0].Source).To(Equal(models.SourceUser))
			Expect(store.Len()).To(Equal(1))
		})

		It("accepts an empty message in a JSON body", func() {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"message":""}`))
			req.Header.Set("Content-Type", "application/json")

			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusOK))

			_, conv := fetch(redirectOf(w))
			Expect(conv.Messages[0].Text).To(BeEmpty())
		})

		It("accepts an empty form field", func() {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("message="))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(store.Len()).To(Equal(1))
		})

		It("returns 400 when the message is not a string", func() {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"message":42}`))
			req.Header.Set("Content-Type", "application/json")

			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(store.Len()).To(BeZero())
		})

		It("returns 400 when there is no body and no query", func() {
			w := serve(httptest.NewRequest(http.MethodPost, "/", nil))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(completer.prompts).To(BeEmpty())
		})

		It("returns 500 and leaves the user message stored when the completion API fails", func() {
			completer.err = &services.ExternalServiceError{Err: errors.New("connection refused")}

			w := ask("Hello")
			Expect(w.Code).To(Equal(http.StatusInternalServerError))

			var resp map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["detail"]).To(Equal("Error communicating with OpenAI API"))

			code, conv := fetch(resp["redirect_url"])
			Expect(code).To(Equal(http.StatusOK))
			Expect(conv.Messages).To(HaveLen(1))
			Expect(conv.Messages[0].Text).To(Equal("Hello"))
			Expect(conv.Messages[0].Source).To(Equal(models.SourceUser))
		})

		It("gives two submissions two independent conversations", func() {
			first := redirectOf(ask("one"))
			second := redirectOf(ask("two"))
			Expect(first).NotTo(Equal(second))

			_, a := fetch(first)
			_, b := fetch(second)
			Expect(a.Messages[0].Text).To(Equal("one"))
			Expect(b.Messages[0].Text).To(Equal("two"))
			Expect(store.Len()).To(Equal(2))
		})

		It("returns a generic 500 for unexpected service errors", func() {
			router = gin.New()
			routes.SetupRouter(router, controllers.NewChatController(failingService{}))

			w := ask("Hello")
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("redirect_url"))
		})
	})

	Describe("GET /conversation/:conversation_id", func() {
		It("returns 404 for an id that was never issued", func() {
			w := serve(httptest.NewRequest(http.MethodGet, "/conversation/00000000-0000-4000-8000-000000000000", nil))
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(w.Body.String()).To(ContainSubstring("Conversation not found"))
		})

		It("returns the conversation verbatim", func() {
			code, conv := fetch(redirectOf(ask("Hello")))
			Expect(code).To(Equal(http.StatusOK))
			Expect(conv.ID).NotTo(BeEmpty())
			Expect(controllers.ConversationURL(conv.ID)).To(HaveSuffix(conv.ID))
		})

		It("does not create anything on lookup", func() {
			_, _ = fetch("/conversation/missing")
			Expect(store.Len()).To(BeZero())
		})

		It("returns 500 for unexpected service errors", func() {
			router = gin.New()
			routes.SetupRouter(router, controllers.NewChatController(failingService{}))

			code, _ := fetch("/conversation/any")
			Expect(code).To(Equal(http.StatusInternalServerError))
		})
	})

	It("serves the health check", func() {
		w := serve(httptest.NewRequest(http.MethodGet, "/health", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
	})
})
