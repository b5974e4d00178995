package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/rs/zerolog/log"

	"pintarai.app/server/internal/catalog"
	"pintarai.app/server/internal/store"
)

// OrderIDMarker is the fixed first segment of every order id this app issues.
const OrderIDMarker = "PINTARAI"

var (
	ErrBadOrderID     = errors.New("invalid order_id format")
	ErrUnknownPackage = errors.New("unknown token package")
	// ErrVerification wraps failures of the gateway's own status check; the
	// whole notification is rejected without partial processing.
	ErrVerification = errors.New("payment verification failed")
)

// TransactionChecker is the gateway verification call; satisfied by
// coreapi.Client. Verification stays delegated to the gateway.
type TransactionChecker interface {
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
}

// SnapCreator issues hosted-checkout transactions; satisfied by snap.Client.
type SnapCreator interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// PaymentService converts gateway webhooks into at-most-one token credit per
// settled order, and creates checkout transactions for token packages.
type PaymentService struct {
	dbStore *store.SQLiteStore
	checker TransactionChecker
	snap    SnapCreator
}

func NewPaymentService(db *store.SQLiteStore, checker TransactionChecker, snapClient SnapCreator) *PaymentService {
	return &PaymentService{
		dbStore: db,
		checker: checker,
		snap:    snapClient,
	}
}

// BuildOrderID encodes the marker, owner and package into an order id, with a
// millisecond nonce for uniqueness.
func BuildOrderID(userID, packageID string) string {
	return fmt.Sprintf("%s-%s-%s-%d", OrderIDMarker, userID, packageID, time.Now().UnixMilli())
}

// ParseOrderID splits "<marker>-<userId>-<packageId>-<nonce>". Exactly four
// segments, first one the marker, none empty.
func ParseOrderID(orderID string) (userID, packageID string, err error) {
	parts := strings.Split(orderID, "-")
	if len(parts) != 4 || parts[0] != OrderIDMarker {
		return "", "", ErrBadOrderID
	}
	if parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return "", "", ErrBadOrderID
	}
	return parts[1], parts[2], nil
}

// CreateTransaction creates a Snap checkout for the package and returns the
// gateway response together with the order id it was issued under.
func (s *PaymentService) CreateTransaction(profile *store.UserProfile, pkg *catalog.TokenPackage) (*snap.Response, string, error) {
	orderID := BuildOrderID(profile.UID, pkg.ID)
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: pkg.Price,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: profile.DisplayName,
			Email: profile.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{ID: pkg.ID, Name: pkg.Description, Price: pkg.Price, Qty: 1},
		},
	}

	resp, merr := s.snap.CreateTransaction(req)
	if merr != nil {
		return nil, "", fmt.Errorf("failed to create snap transaction: %w", merr)
	}
	return resp, orderID, nil
}

// HandleNotification processes one gateway webhook call. The notification is
// verified through the gateway's status API; the canonical order id from that
// response (not the inbound payload) drives all decisions. A settled,
// fraud-accepted order credits its package exactly once; replays and
// non-settled statuses are acknowledged without mutation.
func (s *PaymentService) HandleNotification(ctx context.Context, orderID string) (string, error) {
	if orderID == "" {
		return "", fmt.Errorf("%w: missing order_id", ErrBadOrderID)
	}

	status, merr := s.checker.CheckTransaction(orderID)
	if merr != nil {
		return "", fmt.Errorf("%w: %v", ErrVerification, merr)
	}

	log.Info().
		Str("order_id", status.OrderID).
		Str("transaction_status", status.TransactionStatus).
		Str("fraud_status", status.FraudStatus).
		Msg("Payment notification received")

	userID, packageID, err := ParseOrderID(status.OrderID)
	if err != nil {
		return "", err
	}
	pkg := catalog.PackageByID(packageID)
	if pkg == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownPackage, packageID)
	}

	switch status.TransactionStatus {
	case "capture", "settlement":
		if status.FraudStatus != "accept" {
			log.Warn().Str("order_id", status.OrderID).Str("fraud_status", status.FraudStatus).Msg("Settled payment held by fraud status, no credit")
			return "Notification handled, no action taken.", nil
		}
		err := s.dbStore.CreditTokensOnce(ctx, status.OrderID, userID, pkg.ID, pkg.Tokens)
		if errors.Is(err, store.ErrOrderProcessed) {
			log.Info().Str("order_id", status.OrderID).Msg("Duplicate notification for processed order, no credit")
			return "Order already processed.", nil
		}
		if err != nil {
			return "", err
		}
		log.Info().Str("order_id", status.OrderID).Str("user_id", userID).Int("tokens", pkg.Tokens).Msg("Token credit applied")
		return "Notification handled successfully.", nil

	case "cancel", "deny", "expire":
		log.Info().Str("order_id", status.OrderID).Str("transaction_status", status.TransactionStatus).Msg("Payment failed, no action taken")
		return "Notification handled, no action taken.", nil

	default:
		// pending and anything unrecognized: acknowledge, change nothing.
		return "Notification handled, no action taken.", nil
	}
}
