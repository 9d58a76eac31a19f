// Package drive stores groups as Google Drive folders, one file per
// container.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jaywantadh/PixelVault/internal/container"
	"github.com/jaywantadh/PixelVault/internal/fault"
	"github.com/jaywantadh/PixelVault/internal/manifest"
	"github.com/jaywantadh/PixelVault/internal/storage"
)

// Drive mime types
const (
	FolderMimeType    = "application/vnd.google-apps.folder"
	GoogleDocMimeType = "application/vnd.google-apps.document"
	manifestMimeType  = "application/cbor"
)

const (
	groupProperty = "pixelvault"
	groupValue    = "group"
	exportPrefix  = "export:"

	defaultPageSize = 100
)

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Options configures a Store.
type Options struct {
	// ConvertToDocs uploads containers as native Google Docs. Drive then
	// serves them back through export, which rebuilds the document.
	ConvertToDocs bool
	PageSize      int64
	Logger        logrus.FieldLogger
}

// Store implements storage.Store on Drive v3.
type Store struct {
	svc      *drive.Service
	convert  bool
	pageSize int64
	log      logrus.FieldLogger
}

var (
	_ storage.Store       = (*Store)(nil)
	_ storage.GroupLister = (*Store)(nil)
	_ storage.Rewriter    = (*Store)(nil)
)

// Dial builds a Drive service authenticated by ts.
func Dial(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*drive.Service, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create drive client: %w", err)
	}
	return svc, nil
}

// New wraps svc.
func New(svc *drive.Service, opts Options) *Store {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{svc: svc, convert: opts.ConvertToDocs, pageSize: pageSize, log: logger}
}

func (s *Store) RewritesContainers() bool { return s.convert }

func (s *Store) CreateGroup(ctx context.Context, key string) (storage.GroupHandle, error) {
	folder := &drive.File{
		Name:          key,
		MimeType:      FolderMimeType,
		AppProperties: map[string]string{groupProperty: groupValue},
	}
	f, err := s.svc.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return storage.GroupHandle{}, fault.Transport("create folder", err)
	}
	s.log.WithField("folder", f.Id).Infof("📁 created folder %q", key)
	return storage.GroupHandle{ID: f.Id, Key: key}, nil
}

func (s *Store) UploadContainer(ctx context.Context, g storage.GroupHandle, name string, data []byte) error {
	declared, media := uploadMimeTypes(name, s.convert)
	meta := &drive.File{
		Name:     name,
		MimeType: declared,
		Parents:  []string{g.ID},
	}
	_, err := s.svc.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(media)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return fault.Transport("upload "+name, err)
	}
	return nil
}

func (s *Store) ListContainers(ctx context.Context, g storage.GroupHandle) ([]storage.ContainerRef, error) {
	var refs []storage.ContainerRef
	err := s.svc.Files.List().
		Q(childrenQuery(g.ID)).
		Fields("nextPageToken, files(id, name, mimeType)").
		PageSize(s.pageSize).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				refs = append(refs, storage.ContainerRef{Name: f.Name, Handle: handleFor(f)})
			}
			return nil
		})
	if err != nil {
		return nil, fault.Transport("list "+g.ID, err)
	}
	return refs, nil
}

func (s *Store) FetchContainer(ctx context.Context, ref storage.ContainerRef) ([]byte, error) {
	var body io.ReadCloser
	if id, ok := strings.CutPrefix(ref.Handle, exportPrefix); ok {
		resp, err := s.svc.Files.Export(id, container.MimeType).Context(ctx).Download()
		if err != nil {
			return nil, fault.Transport("export "+ref.Name, err)
		}
		body = resp.Body
	} else {
		resp, err := s.svc.Files.Get(ref.Handle).Context(ctx).Download()
		if err != nil {
			return nil, fault.Transport("download "+ref.Name, err)
		}
		body = resp.Body
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fault.Transport("read "+ref.Name, err)
	}
	return data, nil
}

// ListGroups returns every folder this tool created that is not trashed.
func (s *Store) ListGroups(ctx context.Context) ([]storage.GroupHandle, error) {
	var groups []storage.GroupHandle
	err := s.svc.Files.List().
		Q(groupsQuery()).
		Fields("nextPageToken, files(id, name)").
		PageSize(s.pageSize).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				groups = append(groups, storage.GroupHandle{ID: f.Id, Key: f.Name})
			}
			return nil
		})
	if err != nil {
		return nil, fault.Transport("list folders", err)
	}
	return groups, nil
}

func childrenQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and trashed = false", queryEscaper.Replace(folderID))
}

func groupsQuery() string {
	return fmt.Sprintf("mimeType = '%s' and appProperties has { key='%s' and value='%s' } and trashed = false",
		FolderMimeType, groupProperty, groupValue)
}

// uploadMimeTypes returns the mime type the Drive file is created with and
// the content type of the uploaded bytes.
func uploadMimeTypes(name string, convert bool) (declared, media string) {
	if name == manifest.Name {
		return manifestMimeType, manifestMimeType
	}
	if convert {
		return GoogleDocMimeType, container.MimeType
	}
	return container.MimeType, container.MimeType
}

func handleFor(f *drive.File) string {
	if f.MimeType == GoogleDocMimeType {
		return exportPrefix + f.Id
	}
	return f.Id
}
