package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provider — один внешний переводчик. Пустая строка без ошибки — «не перевёл».
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Chain пробует провайдеров по порядку. Берётся первый непустой перевод,
// отличающийся от исходника без учёта регистра; иначе пустая строка.
type Chain struct {
	providers []Provider
	log       *slog.Logger
}

func NewChain(log *slog.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, log: log}
}

// Default — цепочка как в проде: LibreTranslate, затем MyMemory.
func Default(log *slog.Logger) *Chain {
	return NewChain(log,
		NewLibreTranslate("https://libretranslate.de"),
		NewMyMemory("https://api.mymemory.translated.net"),
	)
}

func (c *Chain) Translate(ctx context.Context, text, source, target string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, p := range c.providers {
		out, err := p.Translate(ctx, text, source, target)
		if err != nil {
			c.log.Warn("translation provider failed",
				"provider", p.Name(), "target", target, "err", err)
			continue
		}
		out = strings.TrimSpace(out)
		if out == "" || strings.EqualFold(out, text) {
			continue
		}
		return out
	}
	return ""
}

const providerTimeout = 10 * time.Second

// LibreTranslate — POST /translate с form-encoded телом.
type LibreTranslate struct {
	baseURL string
	client  *http.Client
}

func NewLibreTranslate(baseURL string) *LibreTranslate {
	return &LibreTranslate{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: providerTimeout},
	}
}

func (p *LibreTranslate) Name() string { return "libretranslate" }

func (p *LibreTranslate) Translate(ctx context.Context, text, source, target string) (string, error) {
	form := url.Values{
		"q":      {text},
		"source": {source},
		"target": {target},
		"format": {"text"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("libretranslate: status %s", resp.Status)
	}

	var body struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", err
	}
	return body.TranslatedText, nil
}

// MyMemory — GET /get?q=...&langpair=ru|en.
type MyMemory struct {
	baseURL string
	client  *http.Client
}

func NewMyMemory(baseURL string) *MyMemory {
	return &MyMemory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: providerTimeout},
	}
}

func (p *MyMemory) Name() string { return "mymemory" }

func (p *MyMemory) Translate(ctx context.Context, text, source, target string) (string, error) {
	u := fmt.Sprintf("%s/get?q=%s&langpair=%s",
		p.baseURL, url.QueryEscape(text), url.QueryEscape(source+"|"+target))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mymemory: status %s", resp.Status)
	}

	var body struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", err
	}
	return body.ResponseData.TranslatedText, nil
}
