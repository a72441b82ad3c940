package checkout

import (
	"testing"

	"freshmart/internal/model"

	"github.com/stretchr/testify/assert"
)

func validAddress() model.DeliveryAddress {
	return model.DeliveryAddress{
		Name:    "Asha Rao",
		Phone:   "9876543210",
		Address: "12 MG Road",
		City:    "Bengaluru",
		Pincode: "560001",
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(a *model.DeliveryAddress)
		expectedErr error
	}{
		{name: "valid", mutate: func(a *model.DeliveryAddress) {}},
		{name: "missing name", mutate: func(a *model.DeliveryAddress) { a.Name = "" }, expectedErr: model.ErrMissingField},
		{name: "blank city", mutate: func(a *model.DeliveryAddress) { a.City = "   " }, expectedErr: model.ErrMissingField},
		{name: "missing pincode", mutate: func(a *model.DeliveryAddress) { a.Pincode = "" }, expectedErr: model.ErrMissingField},
		{name: "short pincode", mutate: func(a *model.DeliveryAddress) { a.Pincode = "1234" }, expectedErr: model.ErrInvalidPincode},
		{name: "long pincode", mutate: func(a *model.DeliveryAddress) { a.Pincode = "5600011" }, expectedErr: model.ErrInvalidPincode},
		{name: "letters in pincode", mutate: func(a *model.DeliveryAddress) { a.Pincode = "56OO01" }, expectedErr: model.ErrInvalidPincode},
		{name: "non-ascii digits", mutate: func(a *model.DeliveryAddress) { a.Pincode = "٥٦٠" }, expectedErr: model.ErrInvalidPincode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAddress()
			tt.mutate(&a)

			err := ValidateAddress(a)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.ErrorIs(t, err, model.ErrValidationFailed)
		})
	}
}

func TestNormaliseAddress(t *testing.T) {
	user := model.User{ID: "user_1", Phone: "9876543210", Name: "Asha"}

	got := NormaliseAddress(model.DeliveryAddress{
		Address: " 12 MG Road ",
		City:    "Bengaluru",
		Pincode: " 560001",
	}, user)

	assert.Equal(t, model.DeliveryAddress{
		Name:    "Asha",
		Phone:   "9876543210",
		Address: "12 MG Road",
		City:    "Bengaluru",
		Pincode: "560001",
	}, got)

	explicit := NormaliseAddress(validAddress(), user)
	assert.Equal(t, "Asha Rao", explicit.Name)
}

func TestResolvePaymentMethod(t *testing.T) {
	tests := map[string]string{
		"cod":     "Cash on Delivery",
		"upi":     "UPI",
		"card":    "Credit/Debit Card",
		" CARD ":  "Credit/Debit Card",
		"bitcoin": "Cash on Delivery",
		"":        "Cash on Delivery",
	}

	for id, expected := range tests {
		assert.Equal(t, expected, ResolvePaymentMethod(id), "id %q", id)
	}
}
