package crossprefs

import (
	"fmt"
	"strings"
)

// Default namespace ids of the GNU MCU Eclipse ARM cross build plugins.
const (
	DefaultCommonNamespace     = "ilg.gnumcueclipse.managedbuild.cross"
	DefaultCurrentNamespace    = "ilg.gnumcueclipse.managedbuild.cross.arm"
	DefaultDeprecatedNamespace = "ilg.gnuarmeclipse.managedbuild.cross"
)

// Namespaces lists the stores taking part in resolution, highest precedence first:
// Common, then Current, then each Legacy store in order.
type Namespaces struct {
	Common  string
	Current string
	Legacy  []string
}

// DefaultNamespaces returns the GNU MCU Eclipse namespace layout.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		Common:  DefaultCommonNamespace,
		Current: DefaultCurrentNamespace,
		Legacy:  []string{DefaultDeprecatedNamespace},
	}
}

// Ordered returns the namespace ids in precedence order.
func (n Namespaces) Ordered() []string {
	ordered := make([]string, 0, 2+len(n.Legacy))
	ordered = append(ordered, n.Common, n.Current)
	return append(ordered, n.Legacy...)
}

// Validate checks that every id is well formed and appears once.
func (n Namespaces) Validate() error {
	seen := make(map[string]bool)
	for _, ns := range n.Ordered() {
		if err := validateNamespace(ns); err != nil {
			return err
		}
		if seen[ns] {
			return fmt.Errorf("%w: %q listed twice", ErrInvalidNamespace, ns)
		}
		seen[ns] = true
	}
	return nil
}

// Layers returns tree handles for every namespace in precedence order.
func (n Namespaces) Layers(tree *Tree) []Store {
	ordered := n.Ordered()
	layers := make([]Store, 0, len(ordered))
	for _, ns := range ordered {
		layers = append(layers, tree.Store(ns))
	}
	return layers
}

func validateNamespace(ns string) error {
	if ns == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidNamespace)
	}
	for _, segment := range strings.Split(ns, ".") {
		if !isValidKeySegment(segment) {
			return fmt.Errorf("%w: invalid segment %q in %q", ErrInvalidNamespace, segment, ns)
		}
	}
	return nil
}
