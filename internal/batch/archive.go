package batch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
)

// ReportEntryName is the archive entry added when some images failed.
const ReportEntryName = "_download_report.txt"

// Assembly is the output of one archive build.
type Assembly struct {
	Zip        []byte
	Downloaded int
	Failed     []ItemFailure
}

// BuildArchive consumes download results in completion order and writes each
// success straight into the ZIP, dropping the image buffer immediately so
// peak memory tracks the concurrency cap rather than the order size.
// Images are stored uncompressed: rendition formats are already compressed.
//
// Entry names are the display name with any extension stripped, the format
// extension appended, and collisions resolved with a numeric suffix in
// completion order. When some (but not all) images failed, a plain-text
// report entry is appended. When no image succeeded, Assembly.Zip is nil.
func BuildArchive(results <-chan DownloadResult, orderName string, total int, format string) (*Assembly, error) {
	ext := ExtForFormat(format)

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	// On an early return the producers must not be left blocked on the
	// channel; drain whatever is still in flight.
	drain := func() {
		for range results {
		}
	}

	asm := &Assembly{}
	seen := make(map[string]struct{})

	for result := range results {
		if result.Failure != nil {
			asm.Failed = append(asm.Failed, *result.Failure)
			continue
		}

		base := strings.TrimSuffix(result.Name, path.Ext(result.Name))
		unique := base
		for counter := 1; ; counter++ {
			if _, taken := seen[unique]; !taken {
				break
			}
			unique = fmt.Sprintf("%s_%d", base, counter)
		}
		seen[unique] = struct{}{}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   unique + "." + ext,
			Method: zip.Store,
		})
		if err != nil {
			drain()
			return nil, fmt.Errorf("batch: create archive entry: %w", err)
		}
		if _, err := w.Write(result.Data); err != nil {
			drain()
			return nil, fmt.Errorf("batch: write archive entry: %w", err)
		}
		result.Data = nil
		asm.Downloaded++
	}

	if asm.Downloaded == 0 {
		return asm, nil
	}

	if len(asm.Failed) > 0 {
		w, err := zw.Create(ReportEntryName)
		if err != nil {
			return nil, fmt.Errorf("batch: create report entry: %w", err)
		}
		if _, err := w.Write([]byte(buildReport(orderName, asm.Downloaded, total, asm.Failed))); err != nil {
			return nil, fmt.Errorf("batch: write report entry: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("batch: finalize archive: %w", err)
	}
	asm.Zip = buf.Bytes()
	return asm, nil
}

func buildReport(orderName string, downloaded, total int, failed []ItemFailure) string {
	lines := []string{
		"Download report for order: " + orderName,
		fmt.Sprintf("Downloaded: %d/%d", downloaded, total),
		"",
		"Failed:",
	}
	for _, f := range failed {
		lines = append(lines, fmt.Sprintf("  - %s (%s): %s", f.ImageID, f.Name, f.Reason))
	}
	lines = append(lines,
		"",
		"To recover these images:",
		"  1. Retry the batch endpoint: already-processed images download instantly.",
		"  2. Or fetch individually: GET /v3/images/{image_id}/enhanced",
	)
	return strings.Join(lines, "\n")
}
