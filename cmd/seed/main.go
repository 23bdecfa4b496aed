// seed genera el script SQL que carga sucursales, productos y umbrales de stock mínimo
// a partir del catálogo (yaml, json o toml).
//
// Uso: go run ./cmd/seed [-charset latin1] [-out ruta.sql] catalog.yaml
// Por defecto escribe internal/infrastructure/postgres/migrations/900_seed_catalog.sql.
// Con -charset latin1 el archivo se transcodifica de ISO-8859-1 (exportes de hojas de cálculo antiguas).
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventario-ledger/pkg/config"
)

func main() {
	charset := flag.String("charset", "utf8", "codificación del catálogo: utf8 | latin1")
	outFlag := flag.String("out", "", "ruta del script de salida")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: seed [-charset latin1] [-out ruta.sql] catalog.yaml")
		os.Exit(2)
	}
	path := flag.Arg(0)

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}
	r, err := decodeInput(raw, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Codificación: %v\n", err)
		os.Exit(1)
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	catalog, err := config.ReadCatalog(r, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Catálogo: %v\n", err)
		os.Exit(1)
	}

	outPath := *outFlag
	if outPath == "" {
		outPath = filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "migrations", "900_seed_catalog.sql")
	}
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSeedSQL(out, catalog); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d sucursales, %d productos\n", outPath, len(catalog.Branches), len(catalog.Products))
}

// decodeInput devuelve el catálogo como UTF-8.
func decodeInput(raw []byte, charset string) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf8", "utf-8":
		return bytes.NewReader(raw), nil
	case "latin1", "iso-8859-1", "iso8859-1":
		return transform.NewReader(bytes.NewReader(raw), charmap.ISO8859_1.NewDecoder()), nil
	}
	return nil, fmt.Errorf("charset no soportado %q (utf8|latin1)", charset)
}

// writeSeedSQL escribe los INSERT idempotentes: sucursales, productos y luego umbrales.
func writeSeedSQL(w io.Writer, c *config.Catalog) error {
	var b strings.Builder
	b.WriteString("-- Catálogo de sucursales y productos\n")
	b.WriteString("-- Generado por cmd/seed\n\n")

	if len(c.Branches) > 0 {
		b.WriteString("-- 1. Sucursales\n")
		b.WriteString("INSERT INTO branches (id, name) VALUES\n")
		for i, br := range c.Branches {
			fmt.Fprintf(&b, "  ('%s', '%s')%s\n", escapeSQL(br.ID), escapeSQL(br.Name), sep(i, len(c.Branches)))
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name;\n\n")
	}

	if len(c.Products) > 0 {
		b.WriteString("-- 2. Productos\n")
		b.WriteString("INSERT INTO products (id, name, category, unit) VALUES\n")
		for i, p := range c.Products {
			fmt.Fprintf(&b, "  ('%s', '%s', '%s', '%s')%s\n",
				escapeSQL(p.ID), escapeSQL(p.Name), escapeSQL(p.Category), escapeSQL(p.Unit), sep(i, len(c.Products)))
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category, unit = EXCLUDED.unit;\n\n")
	}

	type threshold struct {
		product, branch string
		min             int64
	}
	var thresholds []threshold
	for _, p := range c.Products {
		for _, t := range p.Thresholds {
			thresholds = append(thresholds, threshold{product: p.ID, branch: t.Branch, min: t.Min})
		}
	}
	// Orden estable para que el script no cambie entre ejecuciones
	sort.Slice(thresholds, func(i, j int) bool {
		if thresholds[i].product != thresholds[j].product {
			return thresholds[i].product < thresholds[j].product
		}
		return thresholds[i].branch < thresholds[j].branch
	})
	if len(thresholds) > 0 {
		b.WriteString("-- 3. Umbrales de stock mínimo\n")
		b.WriteString("INSERT INTO product_thresholds (product_id, branch_id, threshold) VALUES\n")
		for i, t := range thresholds {
			fmt.Fprintf(&b, "  ('%s', '%s', %d)%s\n", escapeSQL(t.product), escapeSQL(t.branch), t.min, sep(i, len(thresholds)))
		}
		b.WriteString("ON CONFLICT (product_id, branch_id) DO UPDATE SET threshold = EXCLUDED.threshold;\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sep(i, n int) string {
	if i < n-1 {
		return ","
	}
	return ""
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
