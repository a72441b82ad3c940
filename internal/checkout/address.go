package checkout

import (
	"strings"

	"freshmart/internal/model"
)

// PincodeLength is the number of digits in a delivery pincode.
const PincodeLength = 6

// PaymentMethod is a selectable way to pay.
type PaymentMethod struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PaymentMethods lists the methods offered at checkout. The first is the
// fallback for unknown ids.
var PaymentMethods = []PaymentMethod{
	{ID: "cod", Name: "Cash on Delivery", Description: "Pay when you receive"},
	{ID: "upi", Name: "UPI", Description: "Google Pay, PhonePe, Paytm"},
	{ID: "card", Name: "Credit/Debit Card", Description: "Visa, Mastercard, RuPay"},
}

// ResolvePaymentMethod maps a method id to its display name.
func ResolvePaymentMethod(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, m := range PaymentMethods {
		if m.ID == id {
			return m.Name
		}
	}
	return PaymentMethods[0].Name
}

// NormaliseAddress trims every field and fills a blank name or phone from
// the signed-in user.
func NormaliseAddress(a model.DeliveryAddress, u model.User) model.DeliveryAddress {
	a.Name = strings.TrimSpace(a.Name)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Address = strings.TrimSpace(a.Address)
	a.City = strings.TrimSpace(a.City)
	a.Pincode = strings.TrimSpace(a.Pincode)

	if a.Name == "" {
		a.Name = u.Name
	}
	if a.Phone == "" {
		a.Phone = u.Phone
	}
	return a
}

// ValidateAddress requires every field and a six digit pincode.
func ValidateAddress(a model.DeliveryAddress) error {
	for _, field := range []string{a.Name, a.Phone, a.Address, a.City, a.Pincode} {
		if strings.TrimSpace(field) == "" {
			return model.ErrMissingField
		}
	}

	if len(a.Pincode) != PincodeLength {
		return model.ErrInvalidPincode
	}
	for i := 0; i < len(a.Pincode); i++ {
		if a.Pincode[i] < '0' || a.Pincode[i] > '9' {
			return model.ErrInvalidPincode
		}
	}
	return nil
}
