package gateway

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// Registry хранит зарегистрированных платёжных провайдеров по имени.
type Registry struct {
	gateways map[string]domain.PaymentGateway
}

// NewRegistry создаёт реестр из переданных провайдеров.
func NewRegistry(gateways ...domain.PaymentGateway) *Registry {
	r := &Registry{gateways: make(map[string]domain.PaymentGateway, len(gateways))}
	for _, gw := range gateways {
		r.Register(gw)
	}
	return r
}

// Register добавляет провайдера; повторная регистрация имени перезаписывает предыдущего.
func (r *Registry) Register(gw domain.PaymentGateway) {
	r.gateways[strings.ToLower(gw.Name())] = gw
}

// Get возвращает провайдера по имени (без учёта регистра).
func (r *Registry) Get(name string) (domain.PaymentGateway, error) {
	gw, ok := r.gateways[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("payment gateway %q: %w", name, domain.ErrUnknownGateway)
	}
	return gw, nil
}

// Names возвращает имена зарегистрированных провайдеров в стабильном порядке.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
