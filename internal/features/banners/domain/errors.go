package domain

import (
	"errors"
	"fmt"
)

var (
	ErrReloadInProgress   = errors.New("reload already in progress")
	ErrBannerOnScreen     = errors.New("banner is on screen")
	ErrReloadTooSoon      = errors.New("minimum reload interval has not elapsed")
	ErrNotLoaded          = errors.New("banner has no loaded creative")
	ErrUnsupportedNetwork = errors.New("network client does not serve banner type")
)

// NetworkError describes a failed network round trip.
type NetworkError struct {
	BannerType BannerType
	// Code is a network-specific error code, empty when the network gave none.
	Code       string
	HTTPStatus int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s network error (status %d): %v", e.BannerType, e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("%s network error: %v", e.BannerType, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Fill copies what is known about err into details.
func (d ErrorDetails) Fill(err error) ErrorDetails {
	if err == nil {
		return d
	}
	d["error_message"] = err.Error()

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		if netErr.Code != "" {
			d["error_code"] = netErr.Code
		}
		if netErr.HTTPStatus != 0 {
			d["http_status"] = netErr.HTTPStatus
		}
	}
	return d
}
