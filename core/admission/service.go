// Package admission receives admission inquiries from the public site and lets the school review & export them.
package admission

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/site"
)

const dateLayout = "2006-01-02"

var (
	nowFunc = time.Now // mockable
	newID   = func() string { return uuid.New().String() }
)

type (
	Service interface {
		// Submit records a validated inquiry & notifies the school owner.
		Submit(ctx context.Context, ni NewInquiry) (site.AdmissionInquiry, error)
		List() []site.AdmissionInquiry
		// Delete removes the inquiries with the given ids and returns how many were found.
		Delete(ctx context.Context, ids ...string) (int, error)
		Stats() site.InquiryStats
		// WriteCSV writes every inquiry as CSV; site.ErrNothingToExport when there is none.
		WriteCSV(w io.Writer) error
		// EmailExport sends the CSV export as an attachment.
		EmailExport(ctx context.Context, to mail.Address) error
	}

	Deps struct {
		Store   *site.Store
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
		vala.IsNotNil(deps.MailSvc, "MailSvc"),
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "creating admission service")
	}
	return &service{Deps: deps}, nil
}

func (svc *service) Submit(ctx context.Context, ni NewInquiry) (site.AdmissionInquiry, error) {
	inq := site.AdmissionInquiry{
		ID:               newID(),
		StudentName:      ni.StudentName,
		ClassApplied:     ni.ClassApplied,
		PresentClass:     ni.PresentClass,
		PreviousSchool:   ni.PreviousSchool,
		FatherName:       ni.FatherName,
		MotherName:       ni.MotherName,
		PrimaryContact:   ni.PrimaryContact,
		SecondaryContact: ni.SecondaryContact,
		Location:         ni.Location,
		AdditionalInfo:   ni.AdditionalInfo,
		SubmittedDate:    nowFunc().UTC().Format(dateLayout),
	}
	if err := svc.Store.Dispatch(ctx, site.AddAdmissionInquiry{Inquiry: inq}); err != nil {
		return site.AdmissionInquiry{}, err
	}

	if svc.Conf.OwnerEmail != "" {
		svc.MailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Address: svc.Conf.OwnerEmail}},
			Subject:      fmt.Sprintf("New admission inquiry: %s", inq.StudentName),
			TemplateName: "admission_inquiry_received",
			TemplateData: inq,
		})
	}
	return inq, nil
}

func (svc *service) List() []site.AdmissionInquiry {
	return svc.Store.State().Data.AdmissionInquiries
}

func (svc *service) Delete(ctx context.Context, ids ...string) (int, error) {
	var count int
	for _, id := range ids {
		err := svc.Store.Apply(ctx, func(state site.State) (site.Action, error) {
			for _, inq := range state.Data.AdmissionInquiries {
				if inq.ID == id {
					count++
					return site.DeleteAdmissionInquiry{ID: id}, nil
				}
			}
			return nil, nil
		})
		if err != nil {
			return count, errors.Wrap(err, "deleting admission inquiry")
		}
	}
	return count, nil
}

func (svc *service) Stats() site.InquiryStats {
	return site.ComputeInquiryStats(svc.List(), nowFunc())
}

func (svc *service) WriteCSV(w io.Writer) error {
	return site.WriteCSV(w, site.ExportInquiries(svc.List()))
}

func (svc *service) EmailExport(_ context.Context, to mail.Address) error {
	inquiries := svc.List()

	var buf bytes.Buffer
	if err := site.WriteCSV(&buf, site.ExportInquiries(inquiries)); err != nil {
		return err
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{to},
		Subject:      "Admission inquiries export",
		TemplateName: "admission_export",
		TemplateData: map[string]int{"Count": len(inquiries)},
	}
	if err := msg.Attach(&buf, site.ExportFilename, "text/csv"); err != nil {
		return errors.Wrap(err, "attaching export")
	}
	svc.MailSvc.SendMessages(msg)
	return nil
}
