// SPDX-License-Identifier: MIT

package jobs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/renameio/v2"

	"github.com/chasut/eplustv-ah4c/internal/epg"
	xlog "github.com/chasut/eplustv-ah4c/internal/log"
	"github.com/chasut/eplustv-ah4c/internal/playlist"
)

// renderArtifacts serializes both output documents fully in memory. Nothing
// here touches the filesystem, so a failed render aborts the run before any
// target file is replaced.
func renderArtifacts(items []playlist.Item, tv *epg.TV) (m3u, xmltv []byte, err error) {
	var buf bytes.Buffer
	if err := playlist.WriteM3U(&buf, items); err != nil {
		return nil, nil, fmt.Errorf("render M3U: %w", err)
	}
	xmltv, err = epg.Render(tv)
	if err != nil {
		return nil, nil, fmt.Errorf("render XMLTV: %w", err)
	}
	return buf.Bytes(), xmltv, nil
}

// stageArtifact writes data to an fsynced pending file next to path. The
// target is only replaced when the caller invokes CloseAtomicallyReplace,
// so a reader never observes a partial document.
func stageArtifact(ctx context.Context, path string, data []byte) (*renameio.PendingFile, error) {
	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return nil, fmt.Errorf("create pending file: %w", err)
	}
	if _, err := pendingFile.Write(data); err != nil {
		cleanupPending(ctx, pendingFile)
		return nil, fmt.Errorf("write pending file: %w", err)
	}
	return pendingFile, nil
}

// cleanupPending removes a leftover pending file; it is a no-op after a
// successful CloseAtomicallyReplace.
func cleanupPending(ctx context.Context, p *renameio.PendingFile) {
	if err := p.Cleanup(); err != nil {
		xlog.FromContext(ctx).Debug().Err(err).Msg("cleanup pending file")
	}
}
