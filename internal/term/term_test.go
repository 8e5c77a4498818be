package term

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/backmassage/dealsync/internal/config"
)

func TestColorEnabled(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if !ColorEnabled(config.ColorAlways, f) {
		t.Error("always should enable colors")
	}
	if ColorEnabled(config.ColorNever, f) {
		t.Error("never should disable colors")
	}
	if ColorEnabled(config.ColorAuto, f) {
		t.Error("auto should disable colors for a regular file")
	}
}

func TestIsTerminal_Nil(t *testing.T) {
	if IsTerminal(nil) {
		t.Error("nil file is not a terminal")
	}
}
