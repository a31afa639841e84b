// Package reporting manages verification reports, their sections and
// templates, and exports reports to PDF through Gotenberg.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
	"github.com/cbamflow/cbamflow/report"
)

// Renderer converts HTML to PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Input carries report cover fields.
type Input struct {
	CoverTitle    string `json:"coverTitle" validate:"required,min=1"`
	CoverContent  string `json:"coverContent"`
	CoverImageURL string `json:"coverImageUrl"`
}

// SectionInput carries report section fields.
type SectionInput struct {
	ReportID     string `json:"reportId" validate:"required,min=1"`
	Part         string `json:"part" validate:"required,min=1"`
	SectionCode  string `json:"sectionCode"`
	SectionTitle string `json:"sectionTitle" validate:"required,min=1"`
	SectionLevel string `json:"sectionLevel" validate:"required,oneof=H1 H2 H3"`
	OrderNo      int    `json:"orderNo"`
	IsEditable   *bool  `json:"isEditable"`
}

// ContentInput carries section content fields.
type ContentInput struct {
	ReportSectionID string `json:"reportSectionId" validate:"required,min=1"`
	ContentType     string `json:"contentType" validate:"required,oneof=TEXT IMAGE TABLE"`
	OrderNo         int    `json:"orderNo"`
	TextContent     string `json:"textContent"`
	ImageURL        string `json:"imageUrl"`
}

// TemplateInput carries report template fields.
type TemplateInput struct {
	Name        string `json:"name" validate:"required,min=1"`
	Description string `json:"description"`
	Content     string `json:"content"`
	IsActive    *bool  `json:"isActive"`
}

// Service implements report lifecycle operations.
type Service struct {
	renderer Renderer
}

// NewService builds Service instance. renderer may be nil when no
// Gotenberg endpoint is configured, which disables PDF export.
func NewService(renderer Renderer) *Service {
	return &Service{renderer: renderer}
}

// List returns the tenant's reports, newest first.
func (s *Service) List(ctx context.Context, scope *tenant.Scope) ([]datastore.Record, error) {
	return scope.Store.FindMany(ctx, datastore.KindReport, datastore.FindArgs{
		OrderBy: "created_at desc",
	})
}

// Get returns one report with its sections and their contents, both
// ordered by order_no.
func (s *Service) Get(ctx context.Context, scope *tenant.Scope, id string) (datastore.Record, error) {
	record, err := scope.Store.FindUnique(ctx, datastore.KindReport, datastore.Where{"id": id})
	if err != nil {
		return nil, err
	}
	sections, err := scope.Store.FindMany(ctx, datastore.KindReportSection, datastore.FindArgs{
		Where:   datastore.Where{"report_id": id},
		OrderBy: "order_no asc",
	})
	if err != nil {
		return nil, err
	}
	for _, section := range sections {
		sectionID, _ := section["id"].(string)
		contents, err := scope.Store.FindMany(ctx, datastore.KindReportSectionContent, datastore.FindArgs{
			Where:   datastore.Where{"report_section_id": sectionID},
			OrderBy: "order_no asc",
		})
		if err != nil {
			return nil, err
		}
		section["reportSectionContents"] = contents
	}
	record["reportSections"] = sections
	return record, nil
}

// Create inserts a report.
func (s *Service) Create(ctx context.Context, scope *tenant.Scope, input Input) (datastore.Record, error) {
	return scope.Store.Create(ctx, datastore.KindReport, datastore.Data{
		"id":              uuid.NewString(),
		"cover_title":     input.CoverTitle,
		"cover_content":   nullable(input.CoverContent),
		"cover_image_url": nullable(input.CoverImageURL),
	})
}

// Update replaces the report's cover fields.
func (s *Service) Update(ctx context.Context, scope *tenant.Scope, id string, input Input) (datastore.Record, error) {
	return scope.Store.Update(ctx, datastore.KindReport, datastore.Where{"id": id}, datastore.Data{
		"cover_title":     input.CoverTitle,
		"cover_content":   nullable(input.CoverContent),
		"cover_image_url": nullable(input.CoverImageURL),
	})
}

// Delete removes a report.
func (s *Service) Delete(ctx context.Context, scope *tenant.Scope, id string) error {
	return scope.Store.Delete(ctx, datastore.KindReport, datastore.Where{"id": id})
}

// CreateSection inserts a section under an owned report. Sections carry
// no tenant column, so the report lookup is the isolation check.
func (s *Service) CreateSection(ctx context.Context, scope *tenant.Scope, input SectionInput) (datastore.Record, error) {
	if _, err := scope.Store.FindUnique(ctx, datastore.KindReport, datastore.Where{"id": input.ReportID}); err != nil {
		return nil, err
	}
	editable := true
	if input.IsEditable != nil {
		editable = *input.IsEditable
	}
	return scope.Store.Create(ctx, datastore.KindReportSection, datastore.Data{
		"id":            uuid.NewString(),
		"report_id":     input.ReportID,
		"part":          input.Part,
		"section_code":  nullable(input.SectionCode),
		"section_title": input.SectionTitle,
		"section_level": input.SectionLevel,
		"order_no":      input.OrderNo,
		"is_editable":   editable,
	})
}

// DeleteSection removes an owned section and leaves its contents to the
// database's cascade.
func (s *Service) DeleteSection(ctx context.Context, scope *tenant.Scope, id string) error {
	if _, err := s.ownedSection(ctx, scope, id); err != nil {
		return err
	}
	return scope.Store.Delete(ctx, datastore.KindReportSection, datastore.Where{"id": id})
}

// CreateContent inserts a content block under an owned section.
func (s *Service) CreateContent(ctx context.Context, scope *tenant.Scope, input ContentInput) (datastore.Record, error) {
	if _, err := s.ownedSection(ctx, scope, input.ReportSectionID); err != nil {
		return nil, err
	}
	return scope.Store.Create(ctx, datastore.KindReportSectionContent, datastore.Data{
		"id":                uuid.NewString(),
		"report_section_id": input.ReportSectionID,
		"content_type":      input.ContentType,
		"order_no":          input.OrderNo,
		"text_content":      nullable(input.TextContent),
		"image_url":         nullable(input.ImageURL),
	})
}

// DeleteContent removes an owned content block.
func (s *Service) DeleteContent(ctx context.Context, scope *tenant.Scope, id string) error {
	content, err := scope.Store.FindUnique(ctx, datastore.KindReportSectionContent, datastore.Where{"id": id})
	if err != nil {
		return err
	}
	sectionID, _ := content["report_section_id"].(string)
	if _, err := s.ownedSection(ctx, scope, sectionID); err != nil {
		return datastore.ErrNotFound
	}
	return scope.Store.Delete(ctx, datastore.KindReportSectionContent, datastore.Where{"id": id})
}

// ownedSection resolves a section and proves its report belongs to the
// tenant.
func (s *Service) ownedSection(ctx context.Context, scope *tenant.Scope, id string) (datastore.Record, error) {
	section, err := scope.Store.FindUnique(ctx, datastore.KindReportSection, datastore.Where{"id": id})
	if err != nil {
		return nil, err
	}
	reportID, _ := section["report_id"].(string)
	if _, err := scope.Store.FindUnique(ctx, datastore.KindReport, datastore.Where{"id": reportID}); err != nil {
		return nil, datastore.ErrNotFound
	}
	return section, nil
}

// ListTemplates returns the tenant's report templates, newest first.
func (s *Service) ListTemplates(ctx context.Context, scope *tenant.Scope) ([]datastore.Record, error) {
	return scope.Store.FindMany(ctx, datastore.KindReportTemplate, datastore.FindArgs{
		OrderBy: "created_at desc",
	})
}

// CreateTemplate inserts a report template.
func (s *Service) CreateTemplate(ctx context.Context, scope *tenant.Scope, input TemplateInput) (datastore.Record, error) {
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	return scope.Store.Create(ctx, datastore.KindReportTemplate, datastore.Data{
		"id":          uuid.NewString(),
		"name":        input.Name,
		"description": nullable(input.Description),
		"content":     nullable(input.Content),
		"is_active":   active,
	})
}

// UpdateTemplate replaces the template's fields.
func (s *Service) UpdateTemplate(ctx context.Context, scope *tenant.Scope, id string, input TemplateInput) (datastore.Record, error) {
	data := datastore.Data{
		"name":        input.Name,
		"description": nullable(input.Description),
		"content":     nullable(input.Content),
	}
	if input.IsActive != nil {
		data["is_active"] = *input.IsActive
	}
	return scope.Store.Update(ctx, datastore.KindReportTemplate, datastore.Where{"id": id}, data)
}

// DeleteTemplate removes a report template.
func (s *Service) DeleteTemplate(ctx context.Context, scope *tenant.Scope, id string) error {
	return scope.Store.Delete(ctx, datastore.KindReportTemplate, datastore.Where{"id": id})
}

// ExportPDF renders an owned report to PDF.
func (s *Service) ExportPDF(ctx context.Context, scope *tenant.Scope, id string) ([]byte, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("reporting: no renderer configured")
	}
	record, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	html, err := report.BuildHTML(buildDocument(record))
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderHTML(ctx, html)
}

func buildDocument(record datastore.Record) report.Document {
	doc := report.Document{
		CoverTitle:    str(record["cover_title"]),
		CoverContent:  str(record["cover_content"]),
		CoverImageURL: str(record["cover_image_url"]),
		GeneratedAt:   time.Now().Format(time.RFC1123),
	}
	sections, _ := record["reportSections"].([]datastore.Record)
	for _, section := range sections {
		out := report.Section{
			Code:  str(section["section_code"]),
			Title: str(section["section_title"]),
			Level: str(section["section_level"]),
		}
		contents, _ := section["reportSectionContents"].([]datastore.Record)
		for _, content := range contents {
			out.Contents = append(out.Contents, report.Content{
				Type:     str(content["content_type"]),
				Text:     str(content["text_content"]),
				ImageURL: str(content["image_url"]),
			})
		}
		doc.Sections = append(doc.Sections, out)
	}
	return doc
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
