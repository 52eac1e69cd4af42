// Package storage writes export files to the configured output directory.
//
// Files are written to a temporary sibling and renamed into place. When
// overwriting is disabled an existing file is never replaced; the new
// export gets a timestamp suffix instead:
//
//	m, err := storage.NewManager("exports", false)
//	if err != nil {
//	    return err
//	}
//	path, err := m.Save("instagram_photos.csv", func(w io.Writer) error {
//	    return export.WriteSession(w, export.FormatCSV, session)
//	})
package storage
