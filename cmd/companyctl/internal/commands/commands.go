package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/pkg/utils"
	"go.uber.org/zap"
)

type Globals struct {
	Debug   bool
	Version string
}

// Logger returns a console logger; debug output only with --debug.
func (g *Globals) Logger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !g.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

var stdout io.Writer = os.Stdout

func printJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(companies []*models.Company) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tINDUSTRY\tLOCATION\tEMPLOYEES")
	for _, c := range companies {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s, %s\t%d\n", c.ID, c.Name, c.Industry, c.City, c.Country, c.Employees)
	}
	_ = w.Flush()
}

func printCompany(c *models.Company) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", c.ID)
	fmt.Fprintf(w, "Name:\t%s\n", c.Name)
	fmt.Fprintf(w, "Industry:\t%s\n", c.Industry)
	fmt.Fprintf(w, "Location:\t%s, %s\n", c.City, c.Country)
	fmt.Fprintf(w, "Employees:\t%d\n", c.Employees)
	fmt.Fprintf(w, "Description:\t%s\n", utils.Deref(c.Description))
	fmt.Fprintf(w, "Logo:\t%s\n", utils.Deref(c.LogoURL))
	fmt.Fprintf(w, "Created:\t%s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Updated:\t%s\n", c.UpdatedAt.Format("2006-01-02 15:04:05"))
	_ = w.Flush()
}
