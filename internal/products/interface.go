package products

type Service interface {
	// resolves an alias or canonical name to the canonical product name
	Resolve(name string) (string, error)
	// returns the unit price of a canonical product in major currency units
	Price(product string) (int64, error)
	// returns the unit price in minor currency units (price * 100)
	UnitAmount(product string) (int64, error)
	Products() map[string]int64
	Aliases() map[string]string
}
