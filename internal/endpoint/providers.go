package endpoint

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/provider-gateway/internal/neterr"
)

// Resource — путь и метод конкретного ресурса провайдера.
type Resource struct {
	Path   string
	Method HTTPMethod
}

// OpenAI

const openAIBaseURL = "https://api.openai.com/v1"

var (
	OpenAIChatCompletions = Resource{Path: "/chat/completions", Method: MethodPost}
	OpenAIModerations     = Resource{Path: "/moderations", Method: MethodPost}
)

// OpenAIConfig — параметры эндпоинтов OpenAI.
type OpenAIConfig struct {
	Environment  Environment
	APIKey       string
	Organization string
	// BaseURL переопределяет адрес из OpenAIBaseURL (тесты, прокси).
	BaseURL string
}

// OpenAIBaseURL одинаков для всех окружений.
func OpenAIBaseURL(_ Environment) string {
	return openAIBaseURL
}

// OpenAI строит эндпоинт OpenAI с заголовком Authorization: Bearer <key>.
func OpenAI(cfg OpenAIConfig, r Resource) (Endpoint, error) {
	headers := defaultHeaders(ContentTypeJSON)
	headers[HeaderAuthorization] = bearer(cfg.APIKey)
	if cfg.Organization != "" {
		headers["OpenAI-Organization"] = cfg.Organization
	}
	return New(pick(cfg.BaseURL, OpenAIBaseURL(cfg.Environment)), r.Path, r.Method, headers)
}

// Stripe

const stripeBaseURL = "https://api.stripe.com/v1"

// StripeConfig — параметры эндпоинтов Stripe. Тестовый и боевой режимы
// различаются ключом, а не адресом.
type StripeConfig struct {
	Environment Environment
	SecretKey   string
	// StripeAccount — connected account для Stripe Connect.
	StripeAccount string
	APIVersion    string
	BaseURL       string
}

// StripeBaseURL одинаков для всех окружений.
func StripeBaseURL(_ Environment) string {
	return stripeBaseURL
}

// StripeCreateCustomer — POST /customers.
func StripeCreateCustomer() Resource {
	return Resource{Path: "/customers", Method: MethodPost}
}

// StripeAttachPaymentMethod — POST /payment_methods/{id}/attach.
func StripeAttachPaymentMethod(paymentMethodID string) Resource {
	return Resource{Path: "/payment_methods/" + escapeID(paymentMethodID) + "/attach", Method: MethodPost}
}

// StripeUpdateCustomer — POST /customers/{id}.
func StripeUpdateCustomer(customerID string) Resource {
	return Resource{Path: "/customers/" + escapeID(customerID), Method: MethodPost}
}

// StripeCreateSubscription — POST /subscriptions.
func StripeCreateSubscription() Resource {
	return Resource{Path: "/subscriptions", Method: MethodPost}
}

// StripeRetrieveSubscription — GET /subscriptions/{id}.
func StripeRetrieveSubscription(subscriptionID string) Resource {
	return Resource{Path: "/subscriptions/" + escapeID(subscriptionID), Method: MethodGet}
}

// StripeUpdateSubscription — POST /subscriptions/{id}.
func StripeUpdateSubscription(subscriptionID string) Resource {
	return Resource{Path: "/subscriptions/" + escapeID(subscriptionID), Method: MethodPost}
}

// StripeCancelSubscription — DELETE /subscriptions/{id}.
func StripeCancelSubscription(subscriptionID string) Resource {
	return Resource{Path: "/subscriptions/" + escapeID(subscriptionID), Method: MethodDelete}
}

// Stripe строит эндпоинт Stripe. Тело запросов Stripe — form-urlencoded.
func Stripe(cfg StripeConfig, r Resource) (Endpoint, error) {
	if strings.Contains(r.Path, "//") || strings.HasSuffix(r.Path, "/") {
		return Endpoint{}, neterr.InvalidURL(fmt.Sprintf("stripe resource %q has an empty id", r.Path))
	}
	headers := defaultHeaders(ContentTypeForm)
	headers[HeaderAuthorization] = bearer(cfg.SecretKey)
	if cfg.StripeAccount != "" {
		headers["Stripe-Account"] = cfg.StripeAccount
	}
	if cfg.APIVersion != "" {
		headers["Stripe-Version"] = cfg.APIVersion
	}
	return New(pick(cfg.BaseURL, StripeBaseURL(cfg.Environment)), r.Path, r.Method, headers)
}

// Supabase

var supabaseProjectURLs = map[Environment]string{
	Development: "https://mindharbor-dev.supabase.co/rest/v1",
	Staging:     "https://mindharbor-staging.supabase.co/rest/v1",
	Production:  "https://mindharbor.supabase.co/rest/v1",
}

// SupabaseConfig — параметры PostgREST-эндпоинтов Supabase.
type SupabaseConfig struct {
	Environment Environment
	AnonKey     string
	// ServiceKey, если задан, используется вместо AnonKey (серверные вызовы).
	ServiceKey string
	BaseURL    string
}

// SupabaseBaseURL возвращает адрес REST API проекта для окружения.
func SupabaseBaseURL(env Environment) string {
	return supabaseProjectURLs[env]
}

// SupabaseTable — ресурс таблицы PostgREST.
func SupabaseTable(table string, method HTTPMethod) Resource {
	return Resource{Path: "/" + escapeID(table), Method: method}
}

// Supabase строит эндпоинт Supabase с заголовками apikey и Authorization.
func Supabase(cfg SupabaseConfig, r Resource) (Endpoint, error) {
	key := cfg.AnonKey
	if cfg.ServiceKey != "" {
		key = cfg.ServiceKey
	}
	headers := defaultHeaders(ContentTypeJSON)
	headers["apikey"] = key
	headers[HeaderAuthorization] = bearer(key)
	if r.Method == MethodPost || r.Method == MethodPatch {
		headers["Prefer"] = "return=representation"
	}
	return New(pick(cfg.BaseURL, SupabaseBaseURL(cfg.Environment)), r.Path, r.Method, headers)
}

// Internal API

var internalAPIBaseURLs = map[Environment]string{
	Development: "http://localhost:8080/api/v1",
	Staging:     "https://staging-api.mindharbor.app/api/v1",
	Production:  "https://api.mindharbor.app/api/v1",
}

// InternalAPIConfig — параметры эндпоинтов собственного бэкенда.
type InternalAPIConfig struct {
	Environment Environment
	AccessToken string
	BaseURL     string
}

// InternalAPIBaseURL возвращает адрес бэкенда для окружения.
func InternalAPIBaseURL(env Environment) string {
	return internalAPIBaseURLs[env]
}

// InternalAPI строит эндпоинт бэкенда. Без токена заголовок Authorization не ставится.
func InternalAPI(cfg InternalAPIConfig, r Resource) (Endpoint, error) {
	headers := defaultHeaders(ContentTypeJSON)
	if cfg.AccessToken != "" {
		headers[HeaderAuthorization] = bearer(cfg.AccessToken)
	}
	return New(pick(cfg.BaseURL, InternalAPIBaseURL(cfg.Environment)), r.Path, r.Method, headers)
}

func pick(override, def string) string {
	if override != "" {
		return override
	}
	return def
}

func escapeID(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}
