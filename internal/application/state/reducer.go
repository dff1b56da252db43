package state

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/checkout"
	"github.com/pos/backend/internal/domain/customer"
	"github.com/pos/backend/internal/domain/settings"
	"github.com/pos/backend/internal/domain/shared"
)

// businessState is one immutable version of the business data. Reducing never
// mutates an input state; every transition builds fresh slices.
type businessState struct {
	Products     []catalog.Product
	Customers    []customer.Customer
	Transactions []checkout.Transaction
	Settings     settings.Settings
}

// reduce applies an action to a state and returns the next state. It is a
// pure function: same state and action always produce the same result, and
// the input state is left untouched.
func reduce(s businessState, action Action) (businessState, error) {
	switch a := action.(type) {
	case SetProducts:
		s.Products = append([]catalog.Product(nil), a.Products...)
		return s, nil

	case AddProduct:
		if productIndex(s.Products, a.Product.ID) >= 0 {
			return s, shared.ErrAlreadyExists
		}
		s.Products = append(append([]catalog.Product(nil), s.Products...), a.Product)
		return s, nil

	case UpdateProduct:
		idx := productIndex(s.Products, a.Product.ID)
		if idx < 0 {
			return s, shared.ErrNotFound
		}
		next := append([]catalog.Product(nil), s.Products...)
		next[idx] = a.Product
		s.Products = next
		return s, nil

	case DeleteProduct:
		idx := productIndex(s.Products, a.ID)
		if idx < 0 {
			return s, shared.ErrNotFound
		}
		next := append([]catalog.Product(nil), s.Products...)
		s.Products = append(next[:idx], next[idx+1:]...)
		return s, nil

	case AdjustProductStock:
		idx := productIndex(s.Products, a.ID)
		if idx < 0 {
			return s, shared.ErrNotFound
		}
		next := append([]catalog.Product(nil), s.Products...)
		next[idx].AdjustStock(a.Delta)
		s.Products = next
		return s, nil

	case SetCustomers:
		s.Customers = append([]customer.Customer(nil), a.Customers...)
		return s, nil

	case AddCustomer:
		if customerIndex(s.Customers, a.Customer.ID) >= 0 {
			return s, shared.ErrAlreadyExists
		}
		s.Customers = append(append([]customer.Customer(nil), s.Customers...), a.Customer)
		return s, nil

	case UpdateCustomer:
		idx := customerIndex(s.Customers, a.Customer.ID)
		if idx < 0 {
			return s, shared.ErrNotFound
		}
		next := append([]customer.Customer(nil), s.Customers...)
		next[idx] = a.Customer
		s.Customers = next
		return s, nil

	case DeleteCustomer:
		idx := customerIndex(s.Customers, a.ID)
		if idx < 0 {
			return s, shared.ErrNotFound
		}
		next := append([]customer.Customer(nil), s.Customers...)
		s.Customers = append(next[:idx], next[idx+1:]...)
		return s, nil

	case AddTransaction:
		for i := range s.Transactions {
			if s.Transactions[i].ID == a.Transaction.ID {
				return s, shared.ErrAlreadyExists
			}
		}
		s.Transactions = append(append([]checkout.Transaction(nil), s.Transactions...), a.Transaction)
		return s, nil

	case MergeSettings:
		s.Settings = s.Settings.Merge(a.Patch)
		return s, nil

	default:
		return s, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown action type %T", action))
	}
}

func productIndex(products []catalog.Product, id uuid.UUID) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

func customerIndex(customers []customer.Customer, id uuid.UUID) int {
	for i := range customers {
		if customers[i].ID == id {
			return i
		}
	}
	return -1
}
