// Package checkout turns a session's cart into an order.
package checkout

import (
	"context"
	"errors"
	"time"

	"freshmart/internal/auth"
	"freshmart/internal/cart"
	"freshmart/internal/model"
	"freshmart/internal/notify"
	"freshmart/internal/order"

	"github.com/rs/zerolog"
)

// Serializer runs fn exclusively with respect to the other operations of
// a session and returns the notices fn raised.
type Serializer interface {
	Do(fn func()) []model.Notice
}

// Config holds checkout settings.
type Config struct {
	// Delay simulates payment processing.
	Delay time.Duration
}

// Service places orders for one session.
type Service interface {
	// PlaceOrder validates req, waits out the processing delay, then records
	// the order and empties the cart. The notices raised along the way are
	// returned with the result.
	PlaceOrder(ctx context.Context, req model.CheckoutRequest) (model.Order, []model.Notice, error)
}

type service struct {
	cfg      Config
	session  Serializer
	cart     cart.Store
	orders   order.Store
	account  auth.Account
	notifier notify.Notifier
	logger   zerolog.Logger
	sleep    func(time.Duration)
}

// NewService wires a checkout for one session's stores. notifier must be
// the sink the session's Serializer drains.
func NewService(cfg Config, session Serializer, cartStore cart.Store, orders order.Store, account auth.Account, notifier notify.Notifier, logger zerolog.Logger) Service {
	return &service{
		cfg:      cfg,
		session:  session,
		cart:     cartStore,
		orders:   orders,
		account:  account,
		notifier: notifier,
		logger:   logger.With().Str("component", "checkout").Logger(),
		sleep:    time.Sleep,
	}
}

func (s *service) PlaceOrder(ctx context.Context, req model.CheckoutRequest) (model.Order, []model.Notice, error) {
	var (
		address model.DeliveryAddress
		err     error
	)
	notices := s.session.Do(func() {
		address, err = s.precheck(req)
	})
	if err != nil {
		return model.Order{}, notices, err
	}

	// Outside the session lock; a cancelled request still commits.
	s.sleep(s.cfg.Delay)
	commitCtx := context.WithoutCancel(ctx)

	var placed model.Order
	notices = append(notices, s.session.Do(func() {
		placed, err = s.commit(commitCtx, address, ResolvePaymentMethod(req.PaymentMethod))
	})...)
	if err != nil {
		return model.Order{}, notices, err
	}
	return placed, notices, nil
}

// precheck runs before the delay so an invalid request fails fast.
func (s *service) precheck(req model.CheckoutRequest) (model.DeliveryAddress, error) {
	user, ok := s.account.User()
	if !ok {
		notify.Error(s.notifier, "Sign In Required", "Please sign in to place your order.")
		return model.DeliveryAddress{}, model.ErrUnauthenticated
	}

	if len(s.cart.Lines()) == 0 {
		notify.Error(s.notifier, "Empty Cart", "Add some items to your cart first.")
		return model.DeliveryAddress{}, model.ErrEmptyCart
	}

	address := NormaliseAddress(req.Address, user)
	if err := ValidateAddress(address); err != nil {
		if errors.Is(err, model.ErrInvalidPincode) {
			notify.Error(s.notifier, "Invalid Pincode", "Please enter a valid 6-digit pincode.")
		} else {
			notify.Error(s.notifier, "Missing Information", "Please fill in all delivery details.")
		}
		return model.DeliveryAddress{}, err
	}

	return address, nil
}

// commit snapshots the cart, records the order and clears the cart. The
// session may have changed during the delay, so the preconditions are
// checked again.
func (s *service) commit(ctx context.Context, address model.DeliveryAddress, paymentMethod string) (model.Order, error) {
	if _, ok := s.account.User(); !ok {
		notify.Error(s.notifier, "Sign In Required", "Please sign in to place your order.")
		return model.Order{}, model.ErrUnauthenticated
	}

	lines := s.cart.Lines()
	if len(lines) == 0 {
		notify.Error(s.notifier, "Empty Cart", "Add some items to your cart first.")
		return model.Order{}, model.ErrEmptyCart
	}
	totals := s.cart.Totals()

	id := s.orders.CreateOrder(ctx, order.Draft{
		Items:         lines,
		TotalPrice:    totals.Total,
		Discount:      totals.Discount,
		CouponCode:    totals.CouponCode,
		Address:       address,
		PaymentMethod: paymentMethod,
	})
	s.cart.Clear(ctx)

	placed, ok := s.orders.GetOrder(id)
	if !ok {
		// CreateOrder always records the order in memory.
		return model.Order{}, model.ErrOrderNotFound
	}

	s.logger.Info().
		Str("order_id", id).
		Str("payment_method", paymentMethod).
		Msg("checkout completed")
	notify.Info(s.notifier, "Order Placed!", "Your order "+id+" has been confirmed.")

	return placed, nil
}
