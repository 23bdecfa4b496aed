package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
)

// Catalog sucursales y productos de arranque (yaml, json o toml).
//
//	branches:
//	  - { id: b1, name: Centro }
//	products:
//	  - id: p1
//	    name: Arroz 500g
//	    category: granos
//	    unit: und
//	    thresholds:
//	      - { branch: b1, min: 10 }
type Catalog struct {
	Branches []CatalogBranch  `mapstructure:"branches"`
	Products []CatalogProduct `mapstructure:"products"`
}

// CatalogBranch sucursal del catálogo.
type CatalogBranch struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// CatalogProduct producto del catálogo con sus umbrales por sucursal.
// Los umbrales van en lista: Viper normaliza a minúsculas las claves de mapa y los IDs de sucursal no deben cambiar.
type CatalogProduct struct {
	ID         string             `mapstructure:"id"`
	Name       string             `mapstructure:"name"`
	Category   string             `mapstructure:"category"`
	Unit       string             `mapstructure:"unit"`
	Thresholds []CatalogThreshold `mapstructure:"thresholds"`
}

// CatalogThreshold stock mínimo de un producto en una sucursal.
type CatalogThreshold struct {
	Branch string `mapstructure:"branch"`
	Min    int64  `mapstructure:"min"`
}

// LoadCatalog lee y valida el archivo de catálogo. El formato se deduce de la extensión.
func LoadCatalog(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("leer catálogo %s: %w", path, err)
	}
	return decodeCatalog(v, path)
}

// ReadCatalog lee el catálogo desde r (ya en UTF-8). format: yaml, json o toml.
func ReadCatalog(r io.Reader, format string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("leer catálogo (%s): %w", format, err)
	}
	return decodeCatalog(v, format)
}

func decodeCatalog(v *viper.Viper, source string) (*Catalog, error) {
	var c Catalog
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decodificar catálogo %s: %w", source, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate exige IDs únicos y no vacíos, y umbrales no negativos sobre sucursales conocidas.
func (c *Catalog) Validate() error {
	branches := make(map[string]bool, len(c.Branches))
	for _, b := range c.Branches {
		id := strings.TrimSpace(b.ID)
		if id == "" {
			return fmt.Errorf("catálogo: sucursal sin id")
		}
		if branches[id] {
			return fmt.Errorf("catálogo: sucursal duplicada %q", id)
		}
		branches[id] = true
	}
	products := make(map[string]bool, len(c.Products))
	for _, p := range c.Products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("catálogo: producto sin id")
		}
		if products[id] {
			return fmt.Errorf("catálogo: producto duplicado %q", id)
		}
		products[id] = true
		for _, t := range p.Thresholds {
			if !branches[t.Branch] {
				return fmt.Errorf("catálogo: umbral de %q para sucursal desconocida %q", id, t.Branch)
			}
			if t.Min < 0 {
				return fmt.Errorf("catálogo: umbral negativo para %q en %q", id, t.Branch)
			}
		}
	}
	return nil
}

// ThresholdMap umbrales del producto indexados por sucursal.
func (p CatalogProduct) ThresholdMap() map[string]int64 {
	if len(p.Thresholds) == 0 {
		return nil
	}
	m := make(map[string]int64, len(p.Thresholds))
	for _, t := range p.Thresholds {
		m[t.Branch] = t.Min
	}
	return m
}
