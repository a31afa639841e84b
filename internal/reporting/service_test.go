package reporting_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/reporting"
	"github.com/cbamflow/cbamflow/internal/tenant"
	"github.com/cbamflow/cbamflow/internal/testing/memstore"
)

type fakeRenderer struct {
	html string
}

func (f *fakeRenderer) RenderHTML(_ context.Context, html string) ([]byte, error) {
	f.html = html
	return []byte("%PDF-1.7"), nil
}

func scopeFor(store datastore.Store, tenantID string) *tenant.Scope {
	return &tenant.Scope{
		Store:    tenant.NewScopedStore(store, tenantID),
		Claims:   &tenant.Claims{UserID: "u1", Role: authz.RoleOperator, TenantID: tenantID},
		TenantID: tenantID,
	}
}

func TestGetAttachesOrderedSectionsAndContents(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindReport,
		datastore.Data{"id": "r1", "tenant_id": "t1", "cover_title": "Verification 2026"})
	store.Seed(datastore.KindReportSection,
		datastore.Data{"id": "sec1", "report_id": "r1", "section_title": "Scope", "section_level": "H2", "order_no": 1})
	store.Seed(datastore.KindReportSectionContent,
		datastore.Data{"id": "con1", "report_section_id": "sec1", "content_type": "TEXT", "text_content": "Covered processes", "order_no": 1})
	service := reporting.NewService(nil)

	record, err := service.Get(context.Background(), scopeFor(store, "t1"), "r1")
	require.NoError(t, err)
	sections, _ := record["reportSections"].([]datastore.Record)
	require.Len(t, sections, 1)
	contents, _ := sections[0]["reportSectionContents"].([]datastore.Record)
	require.Len(t, contents, 1)
}

func TestSectionOwnershipChain(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindReport,
		datastore.Data{"id": "r1", "tenant_id": "t1", "cover_title": "Own"},
		datastore.Data{"id": "r2", "tenant_id": "t2", "cover_title": "Foreign"})
	service := reporting.NewService(nil)
	ctx := context.Background()

	_, err := service.CreateSection(ctx, scopeFor(store, "t1"), reporting.SectionInput{
		ReportID: "r2", Part: "MAIN", SectionTitle: "Intro", SectionLevel: "H2",
	})
	require.ErrorIs(t, err, datastore.ErrNotFound)

	section, err := service.CreateSection(ctx, scopeFor(store, "t1"), reporting.SectionInput{
		ReportID: "r1", Part: "MAIN", SectionTitle: "Intro", SectionLevel: "H2",
	})
	require.NoError(t, err)
	sectionID, _ := section["id"].(string)

	// Contents inherit the chain.
	_, err = service.CreateContent(ctx, scopeFor(store, "t2"), reporting.ContentInput{
		ReportSectionID: sectionID, ContentType: "TEXT", TextContent: "x",
	})
	require.ErrorIs(t, err, datastore.ErrNotFound)

	content, err := service.CreateContent(ctx, scopeFor(store, "t1"), reporting.ContentInput{
		ReportSectionID: sectionID, ContentType: "TEXT", TextContent: "x",
	})
	require.NoError(t, err)
	contentID, _ := content["id"].(string)

	err = service.DeleteContent(ctx, scopeFor(store, "t2"), contentID)
	require.ErrorIs(t, err, datastore.ErrNotFound)

	err = service.DeleteSection(ctx, scopeFor(store, "t1"), sectionID)
	require.NoError(t, err)
}

func TestExportPDFRendersCoverAndSections(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindReport,
		datastore.Data{"id": "r1", "tenant_id": "t1", "cover_title": "Verification 2026", "cover_content": "Annual CBAM report"})
	store.Seed(datastore.KindReportSection,
		datastore.Data{"id": "sec1", "report_id": "r1", "section_code": "1.1", "section_title": "Scope", "section_level": "H2", "order_no": 1})
	store.Seed(datastore.KindReportSectionContent,
		datastore.Data{"id": "con1", "report_section_id": "sec1", "content_type": "TEXT", "text_content": "Covered processes", "order_no": 1})
	renderer := &fakeRenderer{}
	service := reporting.NewService(renderer)

	pdf, err := service.ExportPDF(context.Background(), scopeFor(store, "t1"), "r1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(pdf), "%PDF"))
	require.Contains(t, renderer.html, "Verification 2026")
	require.Contains(t, renderer.html, "1.1 Scope")
	require.Contains(t, renderer.html, "Covered processes")

	_, err = service.ExportPDF(context.Background(), scopeFor(store, "t2"), "r1")
	require.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestTemplateDefaultsActive(t *testing.T) {
	store := memstore.New()
	service := reporting.NewService(nil)

	record, err := service.CreateTemplate(context.Background(), scopeFor(store, "t1"), reporting.TemplateInput{
		Name: "Default cover",
	})
	require.NoError(t, err)
	require.Equal(t, true, record["is_active"])
	require.Equal(t, "t1", record["tenant_id"])
}
