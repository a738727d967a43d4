// Package businessflow contains the core business logic and use cases for the
// ad posting and content sales workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Campaign / rotation errors
	ErrCampaignNotFound     = errors.New("campaign not found")
	ErrCampaignNotPostable  = errors.New("campaign is not postable")
	ErrRotationConflict     = errors.New("concurrent rotation tick won the race")
	ErrNoEligibleGroups     = errors.New("no eligible groups for campaign")
	ErrNoCompliantCreatives = errors.New("no compliant creatives for campaign")
	ErrCreativeNotFound     = errors.New("creative not found")

	// Group errors
	ErrGroupNotFound    = errors.New("group not found")
	ErrGroupNotPostable = errors.New("group is inactive or bot cannot post")

	// Purchase / payment errors
	ErrBuyerNotFound       = errors.New("buyer not found")
	ErrModelNotFound       = errors.New("model profile not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductInactive     = errors.New("product is inactive")
	ErrPurchaseNotFound    = errors.New("purchase not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrUnknownEvent        = errors.New("unrecognized webhook event")
	ErrInvalidTransition   = errors.New("invalid status transition")

	// Delivery errors
	ErrAlreadyDelivered = errors.New("content already delivered")
	ErrNothingToDeliver = errors.New("product has no content to deliver")
)

// IsNotFound reports whether the error is a data-integrity lookup miss that
// must surface as a 404-class response and must not be retried
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound) ||
		errors.Is(err, ErrCreativeNotFound) ||
		errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrBuyerNotFound) ||
		errors.Is(err, ErrModelNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrPurchaseNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
