package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrDuplicateCurrency = errors.New("duplicate currency id")
)

type Repository interface {
	List(ctx context.Context) ([]Currency, error)
}

// Meta holds the fields shared by every currency kind.
type Meta struct {
	ID       string
	Name     string
	Ticker   string
	Decimals int32
	Color    string
}

// Currency is either a NativeCoin or a Token.
type Currency interface {
	Info() Meta
	isCurrency()
}

// NativeCoin is a chain's base asset, priced by its coin id.
type NativeCoin struct {
	Meta
}

// Token is a contract-based asset issued on a parent chain, priced by contract address.
type Token struct {
	Meta
	Contract      string
	ParentChainID string
}

func (c NativeCoin) Info() Meta { return c.Meta }
func (NativeCoin) isCurrency()  {}

func (t Token) Info() Meta { return t.Meta }
func (Token) isCurrency()  {}

// ContractKey is the lookup key used for token prices.
func (t Token) ContractKey() string {
	return strings.ToLower(t.Contract)
}

// Kind returns "native" or "token".
func Kind(c Currency) string {
	switch c.(type) {
	case NativeCoin:
		return "native"
	case Token:
		return "token"
	default:
		panic(fmt.Sprintf("unknown currency variant %T", c))
	}
}

// Registry resolves currency ids to currencies.
type Registry struct {
	byID map[string]Currency
	list []Currency
}

func NewRegistry(currencies []Currency) (*Registry, error) {
	r := &Registry{
		byID: make(map[string]Currency, len(currencies)),
		list: make([]Currency, 0, len(currencies)),
	}

	for _, c := range currencies {
		if err := validate(c); err != nil {
			return nil, err
		}
		id := c.Info().ID
		if _, ok := r.byID[id]; ok {
			return nil, fmt.Errorf("%w: id=%s", ErrDuplicateCurrency, id)
		}
		r.byID[id] = c
		r.list = append(r.list, c)
	}

	return r, nil
}

func (r *Registry) Resolve(id string) (Currency, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.byID[id]
	return c, ok
}

func (r *Registry) List() []Currency {
	if r == nil {
		return nil
	}
	out := make([]Currency, len(r.list))
	copy(out, r.list)
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.list)
}

func validate(c Currency) error {
	if c == nil {
		return fmt.Errorf("%w: nil currency", ErrInvalidCurrency)
	}
	meta := c.Info()
	if meta.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidCurrency)
	}
	if meta.Decimals < 0 {
		return fmt.Errorf("%w: negative decimals for id=%s", ErrInvalidCurrency, meta.ID)
	}
	if t, ok := c.(Token); ok && t.Contract == "" {
		return fmt.Errorf("%w: token without contract id=%s", ErrInvalidCurrency, meta.ID)
	}
	return nil
}
