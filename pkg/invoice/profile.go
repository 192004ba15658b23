package invoice

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/invoicegen/pkg/currency"
)

// ProfileRequest is the raw settings intake used by both the setup flow and
// the settings endpoint.
type ProfileRequest struct {
	Name      string `json:"company_name" validate:"required"`
	Address   string `json:"company_address" validate:"required"`
	Phone     string `json:"company_phone" validate:"required"`
	OutputDir string `json:"output_dir" validate:"required"`
	LogoPath  string `json:"logo_path"`
	Currency  string `json:"default_currency"`
}

// Profile validates the request and returns the resulting CompanyProfile.
// Fields are stripped before the required checks run, and the default
// currency falls back to USD when left blank.
func (r *ProfileRequest) Profile() (*CompanyProfile, error) {
	req := *r
	req.Name = strings.TrimSpace(r.Name)
	req.Address = strings.TrimSpace(r.Address)
	req.Phone = strings.TrimSpace(r.Phone)
	req.OutputDir = strings.TrimSpace(r.OutputDir)
	req.LogoPath = strings.TrimSpace(r.LogoPath)
	req.Currency = strings.TrimSpace(r.Currency)

	if err := validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &ValidationError{Field: verrs[0].Field(), Message: tagMessage(verrs[0])}
		}
		return nil, err
	}

	code := currency.Code(req.Currency)
	if code == "" {
		code = currency.USD
	}
	return &CompanyProfile{
		Name:      req.Name,
		Address:   req.Address,
		Phone:     req.Phone,
		LogoPath:  req.LogoPath,
		Currency:  code,
		OutputDir: req.OutputDir,
	}, nil
}
