package cms

import (
	"context"
	"fmt"
	"time"
)

// SampleEntities returns a small site: a home page with children, an image,
// a folder and a member. Used by `cms init` and tests.
func SampleEntities() []*Entity {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)

	page := ContentType{ID: 1050, Alias: "page", Icon: "icon-document"}
	home := ContentType{ID: 1051, Alias: "home", Icon: "icon-home"}
	image := ContentType{ID: 1032, Alias: "Image", Icon: "icon-picture"}
	folder := ContentType{ID: 1031, Alias: FolderAlias, Icon: "icon-folder"}
	member := ContentType{ID: 1044, Alias: "Member", Icon: "icon-user"}

	return []*Entity{
		{
			ID: 1100, Key: "6e1c6c3f-0a5c-4c38-9d8b-2f1f5e9b1100", Kind: KindContent,
			Name: "Home", ParentID: -1, Level: 1, Path: "-1,1100", ContentType: home,
			CreatorID: 0, WriterID: 0, CreateDate: created, UpdateDate: updated,
			Published: true, TemplateAlias: "Home",
			Properties: []*Property{
				{Alias: "title", EditorAlias: "Umbraco.TextBox", Value: "Welcome"},
				{Alias: "tags", EditorAlias: "Umbraco.Tags", Value: "news,events"},
				{Alias: "umbracoNaviHide", EditorAlias: "Umbraco.TrueFalse", Value: "0"},
			},
		},
		{
			ID: 1101, Key: "6e1c6c3f-0a5c-4c38-9d8b-2f1f5e9b1101", Kind: KindContent,
			Name: "About", ParentID: 1100, Level: 2, Path: "-1,1100,1101", SortOrder: 1,
			ContentType: page, CreatorID: 0, WriterID: 0, CreateDate: created, UpdateDate: updated,
			Published: true, TemplateAlias: "Page",
			Properties: []*Property{
				{Alias: "title", EditorAlias: "Umbraco.TextBox", Value: "About us"},
				{Alias: "bodyGrid", EditorAlias: EditorGrid, Value: `{"sections":[{"rows":[{"areas":[{"controls":[{"value":"<p>Hello</p><p>World</p>"}]}]}]}]}`},
			},
		},
		{
			ID: 1102, Key: "6e1c6c3f-0a5c-4c38-9d8b-2f1f5e9b1102", Kind: KindContent,
			Name: "Draft", ParentID: 1100, Level: 2, Path: "-1,1100,1102", SortOrder: 2,
			ContentType: page, CreatorID: 0, WriterID: 0, CreateDate: created, UpdateDate: updated,
		},
		{
			ID: 1200, Key: "0b5f2a51-7d3e-4b4f-9a0e-7c2f3d8e1200", Kind: KindMedia,
			Name: "Images", ParentID: -1, Level: 1, Path: "-1,1200", ContentType: folder,
			CreateDate: created, UpdateDate: updated,
		},
		{
			ID: 1201, Key: "0b5f2a51-7d3e-4b4f-9a0e-7c2f3d8e1201", Kind: KindMedia,
			Name: "Logo", ParentID: 1200, Level: 2, Path: "-1,1200,1201", ContentType: image,
			CreateDate: created, UpdateDate: updated,
			Properties: []*Property{
				{Alias: FilePropertyAlias, EditorAlias: EditorImageCropper, Value: `{"src":"/media/1001/logo.png","crops":[]}`},
				{Alias: "umbracoBytes", EditorAlias: "Umbraco.Label", Value: "20480"},
			},
		},
		{
			ID: 1300, Key: "c0a4bb7e-3f2d-4e8a-8a1b-5d6e7f8a1300", Kind: KindMember,
			Name: "Jane Doe", ParentID: -1, Level: 1, Path: "-1,1300", ContentType: member,
			CreateDate: created, UpdateDate: updated, Email: "jane@example.com",
		},
	}
}

// Seed writes the sample site and its backoffice user.
func Seed(ctx context.Context, repo *SQLiteRepository) error {
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := repo.SaveUser(ctx, 0, "Administrator"); err != nil {
		return err
	}
	for _, e := range SampleEntities() {
		if err := repo.SaveEntity(ctx, e); err != nil {
			return fmt.Errorf("seed %s: %w", e.Name, err)
		}
	}
	if err := repo.SaveURL(ctx, 1100, "/"); err != nil {
		return err
	}
	return repo.SaveURL(ctx, 1101, "/about/")
}
