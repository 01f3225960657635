package admission

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/site"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

func setup(t *testing.T) (Service, *validator.Validate) {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()
	require.NoError(t, core.ParseEmailTemplates(conf, logger))
	validate, _ := core.NewValidator()

	store, err := site.NewStore(site.StoreDeps{
		Storage:  inmemdb.NewSnapshotStorage(inmemdb.Open()),
		Logger:   logger,
		Validate: validate,
	})
	require.NoError(t, err)
	// start without the sample inquiries
	require.NoError(t, store.Dispatch(context.Background(), site.UpdateSiteData{
		Patch: site.SiteContentPatch{AdmissionInquiries: &[]site.AdmissionInquiry{}},
	}))

	svc, err := NewService(Deps{Store: store, MailSvc: emailsvc.NewConsoleServiceMock(conf, logger), Conf: conf, Logger: logger})
	require.NoError(t, err)

	emailsvc.ClearSentMessages()
	return svc, validate
}

func arun() NewInquiry {
	return NewInquiry{
		StudentName:    " arun kumar ",
		ClassApplied:   "Class 5",
		PresentClass:   "Class 4",
		PreviousSchool: "St. Mary's, Hyderabad",
		FatherName:     "ravi kumar",
		MotherName:     "lakshmi",
		PrimaryContact: "98765 43210",
		Location:       "Hyderabad",
	}
}

func TestNewInquiry_Validate(t *testing.T) {
	_, validate := setup(t)

	tests := []struct {
		name      string
		modify    func(ni *NewInquiry)
		wantField string
	}{
		{name: "valid"},
		{name: "no student", modify: func(ni *NewInquiry) { ni.StudentName = " " }, wantField: "studentName"},
		{name: "no class", modify: func(ni *NewInquiry) { ni.ClassApplied = "" }, wantField: "classApplied"},
		{name: "no father", modify: func(ni *NewInquiry) { ni.FatherName = "" }, wantField: "fatherName"},
		{name: "bad primary", modify: func(ni *NewInquiry) { ni.PrimaryContact = "12345" }, wantField: "primaryContact"},
		{name: "bad secondary", modify: func(ni *NewInquiry) { ni.SecondaryContact = "5876543210" }, wantField: "secondaryContact"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ni := arun()
			if tt.modify != nil {
				tt.modify(&ni)
			}
			err := ni.Validate(validate)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "ARUN KUMAR", ni.StudentName)
				assert.Equal(t, "9876543210", ni.PrimaryContact)
				return
			}
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "want validator.ValidationErrors, got %T", err)
			assert.Equal(t, tt.wantField, verrs[0].Field())
		})
	}
}

func TestService_SubmitAndExport(t *testing.T) {
	svc, validate := setup(t)
	ctx := context.Background()

	nowFunc = func() time.Time { return time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC) }
	defer func() { nowFunc = time.Now }()

	var buf bytes.Buffer
	assert.Equal(t, site.ErrNothingToExport, svc.WriteCSV(&buf))

	ni := arun()
	require.NoError(t, ni.Validate(validate))
	inq, err := svc.Submit(ctx, ni)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-15", inq.SubmittedDate)
	assert.Equal(t, []site.AdmissionInquiry{inq}, svc.List())

	msg, sent := emailsvc.LastSentMessage()
	require.True(t, sent)
	assert.Equal(t, "owner@school.test", msg.To[0].Address)
	assert.Contains(t, msg.TextContent, "ARUN KUMAR")

	buf.Reset()
	require.NoError(t, svc.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Student Name,Class Applied"))
	assert.True(t, strings.HasPrefix(lines[1], "ARUN KUMAR,Class 5,Class 4,\"St. Mary's, Hyderabad\",RAVI KUMAR"))

	assert.Equal(t, site.InquiryStats{Total: 1, ThisWeek: 1, ThisMonth: 1}, svc.Stats())

	// emailed export
	emailsvc.ClearSentMessages()
	require.NoError(t, svc.EmailExport(ctx, mail.Address{Name: "Principal", Address: "principal@school.test"}))
	msg, sent = emailsvc.LastSentMessage()
	require.True(t, sent)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, site.ExportFilename, msg.Attachments[0].Filename)
	assert.Equal(t, "text/csv", msg.Attachments[0].ContentType)
	csvData, err := base64.StdEncoding.DecodeString(msg.Attachments[0].Content.String())
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "ARUN KUMAR")
	assert.Contains(t, msg.TextContent, "1 admission inquiries")

	// delete
	n, err := svc.Delete(ctx, inq.ID, "unknown")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, svc.List())
	assert.Equal(t, site.ErrNothingToExport, svc.EmailExport(ctx, mail.Address{Address: "principal@school.test"}))
}
