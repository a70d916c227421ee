package products

import (
	"errors"
	"fmt"
	"strings"
)

const minorUnitsPerMajor = 100

var ErrUnknownProduct = errors.New("unknown product")

// DefaultPrices is the price list in MXN.
func DefaultPrices() map[string]int64 {
	return map[string]int64{
		"Netflix Básico":        102,
		"Netflix Estándar":      185,
		"Netflix Premium":       299,
		"Disney Básico":         76,
		"Disney Premium":        185,
		"Spotify 1 Mes":         92,
		"Amazon Video":          55,
		"Max":                   71,
		"Apple TV 1 Mes":        71,
		"Paramount+":            66,
		"Vix":                   50,
		"YouTube Premium 1 Mes": 92,
		"Canva":                 87,
		"FILMITY":               97,
	}
}

// DefaultAliases maps short names used by the payment page to catalog keys.
func DefaultAliases() map[string]string {
	return map[string]string{
		"Netflix":         "Netflix Básico",
		"Disney":          "Disney Básico",
		"Spotify":         "Spotify 1 Mes",
		"Amazon":          "Amazon Video",
		"Apple TV":        "Apple TV 1 Mes",
		"Paramount":       "Paramount+",
		"YouTube Premium": "YouTube Premium 1 Mes",
		"HBO Max":         "Max",
	}
}

// ServiceImpl holds a catalog that is never mutated after New returns.
type ServiceImpl struct {
	prices  map[string]int64
	aliases map[string]string
}

// creates a new ServiceImpl, copying the given tables
func New(prices map[string]int64, aliases map[string]string) (*ServiceImpl, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}

	p := make(map[string]int64, len(prices))
	for name, price := range prices {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("catalog has a product with an empty name")
		}
		if price <= 0 {
			return nil, fmt.Errorf("product %q must have a positive price, got %d", name, price)
		}
		p[name] = price
	}

	a := make(map[string]string, len(aliases))
	for alias, target := range aliases {
		if _, ok := p[target]; !ok {
			return nil, fmt.Errorf("alias %q points to missing product %q", alias, target)
		}
		a[alias] = target
	}

	return &ServiceImpl{
		prices:  p,
		aliases: a,
	}, nil
}

// creates a ServiceImpl with the built-in price list and aliases
func NewDefault() *ServiceImpl {
	s, err := New(DefaultPrices(), DefaultAliases())
	if err != nil {
		panic(err)
	}
	return s
}

func (s *ServiceImpl) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if canonical, ok := s.aliases[name]; ok {
		name = canonical
	}
	if _, ok := s.prices[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProduct, name)
	}
	return name, nil
}

func (s *ServiceImpl) Price(product string) (int64, error) {
	price, ok := s.prices[product]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProduct, product)
	}
	return price, nil
}

func (s *ServiceImpl) UnitAmount(product string) (int64, error) {
	price, err := s.Price(product)
	if err != nil {
		return 0, err
	}
	return price * minorUnitsPerMajor, nil
}

// returns a copy of the price table
func (s *ServiceImpl) Products() map[string]int64 {
	m := make(map[string]int64, len(s.prices))
	for k, v := range s.prices {
		m[k] = v
	}
	return m
}

// returns a copy of the alias table
func (s *ServiceImpl) Aliases() map[string]string {
	m := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		m[k] = v
	}
	return m
}
