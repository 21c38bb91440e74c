package scope

import (
	"fmt"
	"time"

	"github.com/oliverbravery/OpenAuth/internal/domain"
)

// ValidateClient aplica las reglas de schema en el momento de creación o
// registro de un cliente:
//   - nombres de scope únicos y con formato válido
//   - cada client_attribute referencia una entrada del schema de metadata
//   - sin atributos duplicados dentro de un scope
//   - account_attributes referencian atributos de cuenta conocidos
//   - las keys de profile_defaults existen en el schema y sus valores
//     type-checkean contra el tipo declarado
func ValidateClient(c *domain.Client) error {
	seenAttrs := map[string]bool{}
	for _, attr := range c.ProfileMetadataAttributes {
		if attr.Name == "" {
			return fmt.Errorf("scope: metadata attribute with empty name")
		}
		if seenAttrs[attr.Name] {
			return fmt.Errorf("scope: duplicate metadata attribute %q", attr.Name)
		}
		seenAttrs[attr.Name] = true
		if !validMetadataType(attr.Type) {
			return fmt.Errorf("scope: metadata attribute %q has unknown type %q", attr.Name, attr.Type)
		}
	}

	seenScopes := map[string]bool{}
	for _, cs := range c.Scopes {
		if !ValidName(cs.Name) {
			return fmt.Errorf("scope: invalid scope name %q", cs.Name)
		}
		if seenScopes[cs.Name] {
			return fmt.Errorf("scope: duplicate scope name %q", cs.Name)
		}
		seenScopes[cs.Name] = true

		seen := map[string]bool{}
		for _, attr := range cs.ClientAttributes {
			if seen[attr.Name] {
				return fmt.Errorf("scope: scope %q lists attribute %q twice", cs.Name, attr.Name)
			}
			seen[attr.Name] = true
			if c.MetadataAttribute(attr.Name) == nil {
				return fmt.Errorf("scope: scope %q references unknown metadata attribute %q", cs.Name, attr.Name)
			}
		}
		for _, attr := range cs.AccountAttributes {
			if seen[attr.Name] {
				return fmt.Errorf("scope: scope %q lists attribute %q twice", cs.Name, attr.Name)
			}
			seen[attr.Name] = true
			if !domain.KnownAccountAttribute(attr.Name) {
				return fmt.Errorf("scope: scope %q references unknown account attribute %q", cs.Name, attr.Name)
			}
		}
	}

	for key, val := range c.ProfileDefaults {
		attr := c.MetadataAttribute(key)
		if attr == nil {
			return fmt.Errorf("scope: profile default %q not present in metadata schema", key)
		}
		if err := CheckMetadataValue(attr.Type, val); err != nil {
			return fmt.Errorf("scope: profile default %q: %w", key, err)
		}
	}

	for _, name := range c.SharedReadAttributes {
		if !domain.KnownAccountAttribute(name) {
			return fmt.Errorf("scope: shared read attribute %q is not an account attribute", name)
		}
	}
	return nil
}

// CheckMetadataValue verifica que un valor sea del tipo declarado.
// Los valores llegan de JSON, así que los números se chequean como float64
// (integer exige parte fraccionaria nula). datetime debe parsear ISO-8601.
func CheckMetadataValue(t domain.MetadataType, v any) error {
	if v == nil {
		// null siempre es admisible: el atributo existe sin valor.
		return nil
	}
	switch t {
	case domain.MetadataString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
	case domain.MetadataInteger:
		switch n := v.(type) {
		case int:
		case int64:
		case float64:
			if n != float64(int64(n)) {
				return fmt.Errorf("expected integer, got fractional %v", n)
			}
		default:
			return fmt.Errorf("expected integer, got %T", v)
		}
	case domain.MetadataFloat:
		switch v.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("expected float, got %T", v)
		}
	case domain.MetadataBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", v)
		}
	case domain.MetadataDatetime:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected ISO-8601 string, got %T", v)
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("invalid ISO-8601 datetime %q", s)
		}
	case domain.MetadataUnstructured:
		// cualquier valor JSON
	default:
		return fmt.Errorf("unknown metadata type %q", t)
	}
	return nil
}

func validMetadataType(t domain.MetadataType) bool {
	switch t {
	case domain.MetadataString, domain.MetadataInteger, domain.MetadataFloat,
		domain.MetadataBoolean, domain.MetadataDatetime, domain.MetadataUnstructured:
		return true
	}
	return false
}
