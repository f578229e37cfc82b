// Package endpoint описывает неизменяемые HTTP-эндпоинты внешних провайдеров.
//
// Endpoint хранит базовый адрес, путь, метод и заголовки. Полный URL всегда
// вычисляется как baseURL + path и проверяется при построении: если результат
// не является абсолютным URL, конструктор возвращает neterr.InvalidURL.
// Построение эндпоинта никогда не выполняет сетевых запросов.
package endpoint

import (
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/provider-gateway/internal/neterr"
)

// HTTPMethod — HTTP-метод запроса.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodDelete HTTPMethod = "DELETE"
	MethodPatch  HTTPMethod = "PATCH"
)

// Valid сообщает, входит ли метод в поддерживаемый набор.
func (m HTTPMethod) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	default:
		return false
	}
}

// Стандартные заголовки.
const (
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderAuthorization = "Authorization"

	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Endpoint — описание одного HTTP-ресурса. Нулевое значение не пригодно к
// использованию, создавайте через New.
type Endpoint struct {
	baseURL string
	path    string
	method  HTTPMethod
	headers map[string]string
}

// New строит эндпоинт и проверяет, что baseURL+path — абсолютный URL.
func New(baseURL, path string, method HTTPMethod, headers map[string]string) (Endpoint, error) {
	if !method.Valid() {
		return Endpoint{}, neterr.InvalidURL(fmt.Sprintf("unsupported method %q", method))
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	full := baseURL + path
	u, err := url.Parse(full)
	if err != nil {
		return Endpoint{}, neterr.InvalidURL(fmt.Sprintf("%s: %v", full, err))
	}
	if !u.IsAbs() || u.Host == "" {
		return Endpoint{}, neterr.InvalidURL(fmt.Sprintf("%s: not an absolute url", full))
	}

	return Endpoint{
		baseURL: baseURL,
		path:    path,
		method:  method,
		headers: maps.Clone(headers),
	}, nil
}

// BaseURL возвращает базовый адрес провайдера.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Path возвращает путь ресурса.
func (e Endpoint) Path() string { return e.path }

// Method возвращает HTTP-метод.
func (e Endpoint) Method() HTTPMethod { return e.method }

// URL возвращает полный адрес ресурса.
func (e Endpoint) URL() string { return e.baseURL + e.path }

// Headers возвращает копию заголовков.
func (e Endpoint) Headers() map[string]string {
	return maps.Clone(e.headers)
}

// Header возвращает значение одного заголовка.
func (e Endpoint) Header(key string) string {
	return e.headers[key]
}

// WithHeader возвращает копию эндпоинта с дополнительным заголовком.
func (e Endpoint) WithHeader(key, value string) Endpoint {
	h := maps.Clone(e.headers)
	if h == nil {
		h = map[string]string{}
	}
	h[key] = value
	e.headers = h
	return e
}

// WithQuery возвращает новый эндпоинт с query-параметрами в пути.
// Исходный эндпоинт не меняется.
func (e Endpoint) WithQuery(q url.Values) (Endpoint, error) {
	if len(q) == 0 {
		return e, nil
	}
	sep := "?"
	if strings.Contains(e.path, "?") {
		sep = "&"
	}
	return New(e.baseURL, e.path+sep+q.Encode(), e.method, e.headers)
}

// String используется в логах; заголовки не печатаются, в них ключи.
func (e Endpoint) String() string {
	return string(e.method) + " " + e.URL()
}

func defaultHeaders(contentType string) map[string]string {
	return map[string]string{
		HeaderContentType: contentType,
		HeaderAccept:      ContentTypeJSON,
	}
}

func bearer(token string) string {
	return "Bearer " + token
}
