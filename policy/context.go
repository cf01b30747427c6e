/*
Read-only locator indices over a policy snapshot.

PURPOSE:
  Charge placement needs constant-time hops from a locator to the
  entity it names (peril characteristics to coverage window, fee
  locator to fee window). Context builds every index once, up front;
  the snapshot is never mutated afterwards.

SEE ALSO:
  - schedule/generator.go: coverage window resolution per charge
*/
package policy

import "strconv"

// Context wraps a Policy with eager lookup indices.
type Context struct {
	policy *Policy

	modifications     map[string]*Modification
	fees              map[string]*Fee
	exposures         map[string]*Exposure
	perils            map[string]*Peril
	perilChars        map[string]*PerilCharacteristics
	exposureChars     map[string]*ExposureCharacteristics
	policyChars       map[string]*Characteristics
	perilList         []*Peril
	perilCharList     []*PerilCharacteristics
}

// NewContext indexes the snapshot. The policy must not be modified
// while the Context is in use.
func NewContext(p *Policy) *Context {
	c := &Context{
		policy:        p,
		modifications: make(map[string]*Modification, len(p.Modifications)),
		fees:          make(map[string]*Fee, len(p.Fees)),
		exposures:     make(map[string]*Exposure, len(p.Exposures)),
		perils:        make(map[string]*Peril),
		perilChars:    make(map[string]*PerilCharacteristics),
		exposureChars: make(map[string]*ExposureCharacteristics),
		policyChars:   make(map[string]*Characteristics, len(p.Characteristics)),
	}
	for i := range p.Modifications {
		m := &p.Modifications[i]
		c.modifications[m.Locator] = m
	}
	for i := range p.Fees {
		f := &p.Fees[i]
		c.fees[f.Locator] = f
	}
	for i := range p.Characteristics {
		ch := &p.Characteristics[i]
		c.policyChars[ch.Locator] = ch
	}
	for i := range p.Exposures {
		e := &p.Exposures[i]
		c.exposures[e.Locator] = e
		for j := range e.Characteristics {
			ec := &e.Characteristics[j]
			c.exposureChars[ec.Locator] = ec
		}
		for j := range e.Perils {
			peril := &e.Perils[j]
			c.perils[peril.Locator] = peril
			c.perilList = append(c.perilList, peril)
			for k := range peril.Characteristics {
				pc := &peril.Characteristics[k]
				c.perilChars[pc.Locator] = pc
				c.perilCharList = append(c.perilCharList, pc)
			}
		}
	}
	return c
}

// Policy returns the underlying snapshot.
func (c *Context) Policy() *Policy { return c.policy }

// Modification looks up a modification by locator; nil when absent.
func (c *Context) Modification(locator string) *Modification { return c.modifications[locator] }

// Fee looks up a fee by locator; nil when absent.
func (c *Context) Fee(locator string) *Fee { return c.fees[locator] }

// Exposure looks up an exposure by locator; nil when absent.
func (c *Context) Exposure(locator string) *Exposure { return c.exposures[locator] }

// Peril looks up a peril by locator; nil when absent.
func (c *Context) Peril(locator string) *Peril { return c.perils[locator] }

// PerilCharacteristics looks up a coverage window by locator; nil when
// absent.
func (c *Context) PerilCharacteristics(locator string) *PerilCharacteristics {
	return c.perilChars[locator]
}

// ExposureCharacteristics looks up an exposure window by locator; nil
// when absent.
func (c *Context) ExposureCharacteristics(locator string) *ExposureCharacteristics {
	return c.exposureChars[locator]
}

// PolicyCharacteristics looks up a policy-level window by locator; nil
// when absent.
func (c *Context) PolicyCharacteristics(locator string) *Characteristics {
	return c.policyChars[locator]
}

// AllPerils returns every peril across all exposures, in snapshot order.
func (c *Context) AllPerils() []*Peril { return c.perilList }

// AllPerilCharacteristics returns every coverage window across all
// perils, in snapshot order.
func (c *Context) AllPerilCharacteristics() []*PerilCharacteristics { return c.perilCharList }

// ============================================================================
// FIELD VALUE ACCESS
// ============================================================================

// First returns the first value of a field.
func (fv FieldValues) First(key string) (string, bool) {
	vals, ok := fv[key]
	if !ok || len(vals) == 0 { return "", false }
	return vals[0], true
}

// Int parses the first value of a field as an integer.
func (fv FieldValues) Int(key string) (int, bool) {
	s, ok := fv.First(key)
	if !ok { return 0, false }
	n, err := strconv.Atoi(s)
	if err != nil { return 0, false }
	return n, true
}

// Float parses the first value of a field as a float.
func (fv FieldValues) Float(key string) (float64, bool) {
	s, ok := fv.First(key)
	if !ok { return 0, false }
	f, err := strconv.ParseFloat(s, 64)
	if err != nil { return 0, false }
	return f, true
}
