// Package access handles requests for admin access: applicants register, the school approves or rejects them.
package access

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/site"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrRequestNotFound   = errors.New("admin request not found")
	ErrNotPending        = errors.New("admin request was already processed")
	ErrRequestPending    = errors.New("an admin request with this email is already pending")
	ErrAlreadyRegistered = errors.New("this email is already registered, you can login directly")

	nowFunc          = time.Now // mockable
	newID            = func() string { return uuid.New().String() }
	hashPasswordFunc = func(pwd string) ([]byte, error) {
		return bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	}
)

type (
	Service interface {
		// CheckEmailAvailable fails when `email` belongs to a user or to a pending request.
		CheckEmailAvailable(ctx context.Context, email string) error
		Register(ctx context.Context, nr NewAdminRequest) (site.AdminRequest, error)
		// Approve creates an admin account from a pending request.
		// When the email is already registered, the request is still approved and ErrAlreadyRegistered is returned.
		Approve(ctx context.Context, id string, approver user.User) (user.User, error)
		Reject(ctx context.Context, id string, approver user.User) error
		Delete(ctx context.Context, id string) error
		List(statuses ...site.RequestStatus) []site.AdminRequest
	}

	Deps struct {
		Store   *site.Store
		UserSvc user.Service
		MailSvc core.EmailService
		Conf    *core.Config
		Logger  core.Logger
	}

	service struct {
		Deps
	}
)

var _ Service = (*service)(nil)

func NewService(deps Deps) (Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Store, "Store"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.MailSvc, "MailSvc"),
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "creating access service")
	}
	return &service{Deps: deps}, nil
}

func emailError(err error) error {
	return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
}

func hasPendingRequest(sc site.SiteContent, email string) bool {
	for _, req := range sc.AdminRequestsByStatus(site.StatusPending) {
		if strings.EqualFold(req.Email, email) {
			return true
		}
	}
	return false
}

func (svc *service) CheckEmailAvailable(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	if _, err := svc.UserSvc.GetByEmail(ctx, email); err == nil {
		return emailError(ErrAlreadyRegistered)
	} else if errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "finding user by email")
	}
	if hasPendingRequest(svc.Store.State().Data, email) {
		return emailError(ErrRequestPending)
	}
	return nil
}

// Register stores a pending request holding only the password hash, then notifies the school owner.
// `nr` must have been validated.
func (svc *service) Register(ctx context.Context, nr NewAdminRequest) (site.AdminRequest, error) {
	hash, err := hashPasswordFunc(nr.Password)
	if err != nil {
		return site.AdminRequest{}, errors.Wrap(err, "hashing password")
	}
	req := site.AdminRequest{
		ID:           newID(),
		FirstName:    nr.FirstName,
		LastName:     nr.LastName,
		Email:        nr.Email,
		Phone:        PhonePrefix + nr.Phone,
		PasswordHash: string(hash),
		RequestDate:  nowFunc().UTC().Format(time.RFC3339),
		Status:       site.StatusPending,
	}

	err = svc.Store.Apply(ctx, func(state site.State) (site.Action, error) {
		// another request may have slipped in since validation
		if hasPendingRequest(state.Data, req.Email) {
			return nil, emailError(ErrRequestPending)
		}
		return site.AddAdminRequest{Request: req}, nil
	})
	if err != nil {
		return site.AdminRequest{}, err
	}

	svc.notifyOwner(req)
	return req, nil
}

func (svc *service) notifyOwner(req site.AdminRequest) {
	if svc.Conf.OwnerEmail == "" {
		return
	}
	svc.MailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: svc.Conf.OwnerEmail}},
		Subject:      "New admin access request",
		TemplateName: "admin_request_received",
		TemplateData: map[string]string{
			"FirstName": req.FirstName,
			"LastName":  req.LastName,
			"Email":     req.Email,
			"Phone":     req.Phone,
		},
	})
}

func pendingRequest(sc site.SiteContent, id string) (site.AdminRequest, error) {
	req, ok := sc.FindAdminRequest(id)
	if !ok {
		return site.AdminRequest{}, ErrRequestNotFound
	}
	if req.Status != site.StatusPending {
		return site.AdminRequest{}, ErrNotPending
	}
	return req, nil
}

// process moves a pending request to `status` atomically & returns it as it was.
func (svc *service) process(ctx context.Context, id string, status site.RequestStatus) (site.AdminRequest, error) {
	var req site.AdminRequest
	err := svc.Store.Apply(ctx, func(state site.State) (site.Action, error) {
		r, err := pendingRequest(state.Data, id)
		if err != nil {
			return nil, err
		}
		req = r
		return site.UpdateAdminRequest{ID: id, Status: status}, nil
	})
	return req, err
}

// reopen puts an approved request back to pending after its account could not be created.
func (svc *service) reopen(ctx context.Context, id string) {
	err := svc.Store.Apply(ctx, func(state site.State) (site.Action, error) {
		if req, ok := state.Data.FindAdminRequest(id); !ok || req.Status != site.StatusApproved {
			return nil, nil
		}
		return site.UpdateAdminRequest{ID: id, Status: site.StatusPending}, nil
	})
	if err != nil {
		svc.Logger.Error(fmt.Sprintf("access.reopen: %v", err), err)
	}
}

func (svc *service) Approve(ctx context.Context, id string, approver user.User) (user.User, error) {
	req, err := svc.process(ctx, id, site.StatusApproved)
	if err != nil {
		return user.User{}, err
	}

	usr, err := svc.UserSvc.GetByEmail(ctx, req.Email)
	switch errors.Cause(err) {
	case nil:
		return usr, ErrAlreadyRegistered
	case user.ErrNotFound:
	default:
		svc.reopen(ctx, id)
		return user.User{}, errors.Wrap(err, "finding user by email")
	}

	nu := user.NewUser{
		Name:  strings.TrimSpace(req.FirstName + " " + req.LastName),
		Email: req.Email,
		Phone: req.Phone,
		Roles: []string{user.RoleAdmin},
	}
	usr, err = svc.UserSvc.CreateWithHash(ctx, nu, []byte(req.PasswordHash))
	if err != nil {
		if errors.Cause(err) == user.ErrEmailExists {
			return user.User{}, ErrAlreadyRegistered
		}
		svc.reopen(ctx, id)
		return user.User{}, errors.Wrap(err, "creating admin user")
	}

	svc.Logger.Info(fmt.Sprintf("access.Approve: %s approved by %s", req.Email, approver.Email))
	svc.MailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your admin access was approved",
		TemplateName: "admin_request_approved",
		TemplateData: map[string]string{"FirstName": req.FirstName},
	})
	return usr, nil
}

func (svc *service) Reject(ctx context.Context, id string, approver user.User) error {
	req, err := svc.process(ctx, id, site.StatusRejected)
	if err != nil {
		return err
	}
	svc.Logger.Info(fmt.Sprintf("access.Reject: %s rejected by %s", req.Email, approver.Email))
	return nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.Store.Apply(ctx, func(state site.State) (site.Action, error) {
		if _, ok := state.Data.FindAdminRequest(id); !ok {
			return nil, ErrRequestNotFound
		}
		return site.DeleteAdminRequest{ID: id}, nil
	})
}

// List returns the requests with one of `statuses`, or all of them when none is given.
func (svc *service) List(statuses ...site.RequestStatus) []site.AdminRequest {
	if len(statuses) == 0 {
		statuses = []site.RequestStatus{site.StatusPending, site.StatusApproved, site.StatusRejected}
	}
	return svc.Store.State().Data.AdminRequestsByStatus(statuses...)
}
