package state

import (
	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/checkout"
	"github.com/pos/backend/internal/domain/customer"
	"github.com/pos/backend/internal/domain/settings"
)

// Action is a named state transition request. All business state mutation
// flows through Dispatch with one of the concrete action types below; nothing
// mutates the state directly.
type Action interface {
	ActionName() string
}

// SetProducts replaces the whole product collection
type SetProducts struct {
	Products []catalog.Product
}

// AddProduct inserts a new product; an existing id is a conflict
type AddProduct struct {
	Product catalog.Product
}

// UpdateProduct replaces an existing product by id
type UpdateProduct struct {
	Product catalog.Product
}

// DeleteProduct removes a product by id
type DeleteProduct struct {
	ID uuid.UUID
}

// AdjustProductStock applies a signed stock delta to a product, clamped at
// zero. The delta is applied inside the reducer, so concurrent adjustments
// to the same product serialize instead of overwriting each other.
type AdjustProductStock struct {
	ID    uuid.UUID
	Delta int
}

// SetCustomers replaces the whole customer collection
type SetCustomers struct {
	Customers []customer.Customer
}

// AddCustomer inserts a new customer; an existing id is a conflict
type AddCustomer struct {
	Customer customer.Customer
}

// UpdateCustomer replaces an existing customer by id
type UpdateCustomer struct {
	Customer customer.Customer
}

// DeleteCustomer removes a customer by id
type DeleteCustomer struct {
	ID uuid.UUID
}

// AddTransaction appends a settled transaction. Transactions are append-only;
// there is no update or delete action for them.
type AddTransaction struct {
	Transaction checkout.Transaction
}

// MergeSettings applies a partial settings update
type MergeSettings struct {
	Patch settings.Patch
}

func (SetProducts) ActionName() string    { return "products/set" }
func (AddProduct) ActionName() string     { return "products/add" }
func (UpdateProduct) ActionName() string  { return "products/update" }
func (DeleteProduct) ActionName() string  { return "products/delete" }

func (AdjustProductStock) ActionName() string { return "products/adjust_stock" }

func (SetCustomers) ActionName() string   { return "customers/set" }
func (AddCustomer) ActionName() string    { return "customers/add" }
func (UpdateCustomer) ActionName() string { return "customers/update" }
func (DeleteCustomer) ActionName() string { return "customers/delete" }
func (AddTransaction) ActionName() string { return "transactions/add" }
func (MergeSettings) ActionName() string  { return "settings/merge" }
