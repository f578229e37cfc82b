package endpoint

import (
	"fmt"
	"strings"
)

// Environment — окружение, от которого зависят базовые адреса провайдеров.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// ParseEnvironment разбирает строку из конфига. Поддерживаются короткие
// формы local/dev/stage/prod, как в значении env конфига.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev", "local":
		return Development, nil
	case "staging", "stage":
		return Staging, nil
	case "production", "prod":
		return Production, nil
	default:
		return "", fmt.Errorf("unknown environment %q", s)
	}
}

// Valid сообщает, является ли значение одним из известных окружений.
func (e Environment) Valid() bool {
	return e == Development || e == Staging || e == Production
}
