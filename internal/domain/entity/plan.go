package entity

import "github.com/shopspring/decimal"

// Plan representa un plan de suscripción que otorga un cupo de slots de RUT.
type Plan struct {
	ID         string
	Code       string // único: basic, pro, enterprise
	Name       string
	PriceMonth decimal.Decimal // CLP
	RUTQuota   int             // cantidad de slots que otorga (1, 2, 4, ...)
	IsActive   bool
}
