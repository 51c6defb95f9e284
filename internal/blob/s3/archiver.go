package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// defaultPageSize is how many transactions are read per store query while
// building an archive file.
const defaultPageSize = 500

// defaultPrefix is the key prefix for archive objects when none is
// configured.
const defaultPrefix = "archive/transactions"

// ArchiveResult summarises one archival run.
type ArchiveResult struct {
	Path     string `json:"path"`
	Archived int64  `json:"archived"`
	Deleted  int64  `json:"deleted"`
}

// Archiver copies old ledger transactions out of the primary store into
// S3 as JSONL, verifies the upload by reading it back, and only then
// deletes the archived rows. A failed verification leaves the store
// untouched.
type Archiver struct {
	writer       domain.BlobWriter
	reader       domain.BlobReader
	transactions domain.TransactionStore
	prefix       string
	pageSize     int
	logger       *slog.Logger
}

// NewArchiver creates an Archiver over the given blob client and
// transaction store. Archive objects are keyed under prefix; pass ""
// for the default.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, transactions domain.TransactionStore, prefix string, logger *slog.Logger) *Archiver {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Archiver{
		writer:       writer,
		reader:       reader,
		transactions: transactions,
		prefix:       strings.TrimSuffix(prefix, "/"),
		pageSize:     defaultPageSize,
		logger:       logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveTransactions archives every transaction created before the
// cutoff to archive/transactions/YYYY-MM-DD.jsonl and prunes the
// archived rows from the store. Returns a zero result when there is
// nothing to archive.
func (a *Archiver) ArchiveTransactions(ctx context.Context, before time.Time) (ArchiveResult, error) {
	var (
		records []domain.Transaction
		offset  int
	)
	for {
		page, err := a.transactions.ListBefore(ctx, before, domain.ListOpts{
			Limit:  a.pageSize,
			Offset: offset,
		})
		if err != nil {
			return ArchiveResult{}, fmt.Errorf("s3blob: archive query: %w", err)
		}
		records = append(records, page...)
		if len(page) < a.pageSize {
			break
		}
		offset += len(page)
	}

	if len(records) == 0 {
		a.logger.Info("nothing to archive", slog.Time("before", before))
		return ArchiveResult{}, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path, err := a.archivePath(ctx, before)
	if err != nil {
		return ArchiveResult{}, err
	}

	if err := a.upload(ctx, path, buf); err != nil {
		return ArchiveResult{}, err
	}

	if err := a.verify(ctx, path, len(records)); err != nil {
		return ArchiveResult{}, err
	}

	deleted, err := a.transactions.DeleteBefore(ctx, before)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("s3blob: prune archived rows: %w", err)
	}

	result := ArchiveResult{
		Path:     path,
		Archived: int64(len(records)),
		Deleted:  deleted,
	}
	a.logger.Info("transactions archived",
		slog.String("path", result.Path),
		slog.Int64("archived", result.Archived),
		slog.Int64("deleted", result.Deleted),
	)
	return result, nil
}

// ListArchives returns metadata for every transaction archive currently
// in the bucket.
func (a *Archiver) ListArchives(ctx context.Context) ([]domain.BlobInfo, error) {
	infos, err := a.reader.List(ctx, a.prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("s3blob: list archives: %w", err)
	}
	return infos, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// cutoff date. If an object already exists at the key a numeric suffix
// is appended so an earlier archive is never overwritten.
func (a *Archiver) archivePath(ctx context.Context, before time.Time) (string, error) {
	base := fmt.Sprintf("%s/%s", a.prefix, before.Format("2006-01-02"))
	path := base + ".jsonl"
	for i := 1; ; i++ {
		exists, err := a.reader.Exists(ctx, path)
		if err != nil {
			return "", fmt.Errorf("s3blob: check archive path: %w", err)
		}
		if !exists {
			return path, nil
		}
		path = fmt.Sprintf("%s-%d.jsonl", base, i)
	}
}

// upload sends the archive payload, switching to a multipart upload when
// it exceeds the single-part threshold.
func (a *Archiver) upload(ctx context.Context, path string, buf []byte) error {
	if int64(len(buf)) > minPartSize {
		if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize); err != nil {
			return fmt.Errorf("s3blob: archive upload: %w", err)
		}
		return nil
	}
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive upload: %w", err)
	}
	return nil
}

// verify reads the uploaded archive back and confirms it contains the
// expected number of records.
func (a *Archiver) verify(ctx context.Context, path string, want int) error {
	body, err := a.reader.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("s3blob: verify archive: %w", err)
	}
	defer body.Close()

	var got int
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			got++
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("s3blob: verify archive read: %w", err)
	}
	if got != want {
		return fmt.Errorf("s3blob: verify archive %s: expected %d records, found %d", path, want, got)
	}
	return nil
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
