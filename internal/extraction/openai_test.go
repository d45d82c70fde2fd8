package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("OpenAI", func() {
	var (
		server    *ghttp.Server
		completer *OpenAI
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		completer, err = NewOpenAI(OpenAIConfig{
			APIKey:  "sk-test",
			BaseURL: server.URL() + "/v1/",
			Model:   "gpt-4o-mini",
		}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	When("the server replies", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer sk-test"),
				func(w http.ResponseWriter, r *http.Request) {
					var body struct {
						Model    string `json:"model"`
						Messages []struct {
							Role    string `json:"role"`
							Content string `json:"content"`
						} `json:"messages"`
					}
					Expect(decodeBody(r, &body)).To(Succeed())
					Expect(body.Model).To(Equal("gpt-4o-mini"))
					Expect(body.Messages).To(HaveLen(3))
					Expect(body.Messages[0].Role).To(Equal("system"))
					Expect(body.Messages[1].Role).To(Equal("user"))
					Expect(body.Messages[2].Role).To(Equal("assistant"))
				},
				ghttp.RespondWith(http.StatusOK, `{"choices":[{"message":{"content":" What's your ABN? "}}]}`),
			))
		})

		It("returns the first choice", func() {
			text, err := completer.Complete(context.Background(), "SYSTEM", Transcript{
				{Role: RoleUser, Content: "hola"},
				{Role: RoleAssistant, Content: "¿Nombre?"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("What's your ABN?"))
		})
	})

	When("there are no choices", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"choices":[]}`))
		})

		It("returns an error", func() {
			_, err := completer.Complete(context.Background(), "SYSTEM", Utterance("hola"))
			Expect(err).To(MatchError(ContainSubstring("no choices")))
		})
	})

	When("the server returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusTooManyRequests, `{"error":"rate limited"}`))
		})

		It("returns an error with the status", func() {
			_, err := completer.Complete(context.Background(), "SYSTEM", Utterance("hola"))
			Expect(err).To(MatchError(ContainSubstring("openai status 429")))
		})
	})

	When("no key is available", func() {
		BeforeEach(func() {
			prev, had := os.LookupEnv("OPENAI_API_KEY")
			Expect(os.Unsetenv("OPENAI_API_KEY")).To(Succeed())
			DeferCleanup(func() {
				if had {
					os.Setenv("OPENAI_API_KEY", prev)
				}
			})
		})

		It("refuses to build the completer", func() {
			_, err := NewOpenAI(OpenAIConfig{}, nil)
			Expect(err).To(HaveOccurred())
		})
	})
})

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
