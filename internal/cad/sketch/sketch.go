package sketch

import (
	"fmt"
	"maps"
	"slices"

	"cad-service/internal/cad/domain"
)

// ============================================================
// Sketch
// ============================================================

// Sketch: упорядоченный набор элементов на одной плоскости.
// Любая правка либо применяется целиком, либо не меняет эскиз.
type Sketch struct {
	ID      string
	PlaneID string

	elements map[string]*Element
	order    []string
	seq      int
}

func New(id, planeID string) *Sketch {
	return &Sketch{
		ID:       id,
		PlaneID:  planeID,
		elements: make(map[string]*Element),
	}
}

// Len: число элементов, включая дочерние линии контейнеров.
func (s *Sketch) Len() int {
	return len(s.order)
}

// IDs возвращает id элементов в порядке создания.
func (s *Sketch) IDs() []string {
	return slices.Clone(s.order)
}

// Element возвращает копию элемента.
func (s *Sketch) Element(id string) (Element, error) {
	e, ok := s.elements[id]
	if !ok {
		return Element{}, domain.NotFound("element", id)
	}
	return *e.clone(), nil
}

// Elements возвращает копии всех элементов в порядке создания.
func (s *Sketch) Elements() []Element {
	out := make([]Element, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.elements[id].clone())
	}
	return out
}

// Validate проверяет иерархию: у каждого элемента либо нет родителя, либо
// родитель существует, является контейнером и перечисляет его среди детей.
func (s *Sketch) Validate() error {
	return validate(s.elements, s.order)
}

func validate(elements map[string]*Element, order []string) error {
	if len(elements) != len(order) {
		return fmt.Errorf("sketch index out of sync: %d elements, %d ordered", len(elements), len(order))
	}
	for _, id := range order {
		e, ok := elements[id]
		if !ok || e.ID != id {
			return fmt.Errorf("element %q missing from index", id)
		}
		if e.ParentID != "" {
			parent, ok := elements[e.ParentID]
			if !ok {
				return fmt.Errorf("element %q: parent %q does not exist", id, e.ParentID)
			}
			if !parent.IsComposite() {
				return fmt.Errorf("element %q: parent %q is not a container", id, e.ParentID)
			}
			if !slices.Contains(parent.Children, id) {
				return fmt.Errorf("element %q: parent %q does not list it", id, e.ParentID)
			}
		}
		for _, child := range e.Children {
			c, ok := elements[child]
			if !ok {
				return fmt.Errorf("element %q: child %q does not exist", id, child)
			}
			if c.ParentID != id {
				return fmt.Errorf("element %q: child %q has parent %q", id, child, c.ParentID)
			}
		}
	}
	return nil
}

// ============================================================
// Transactions
// ============================================================

// tx накапливает изменения эскиза и применяет их разом в commit.
type tx struct {
	s       *Sketch
	seq     int
	work    map[string]*Element
	added   []string
	removed map[string]bool
}

func (s *Sketch) begin() *tx {
	return &tx{s: s, seq: s.seq, work: make(map[string]*Element), removed: make(map[string]bool)}
}

func (t *tx) newID(typ Type) string {
	t.seq++
	return fmt.Sprintf("%s_%d", typ, t.seq)
}

// get возвращает рабочую копию элемента; изменения видны только после commit.
func (t *tx) get(id string) (*Element, error) {
	if t.removed[id] {
		return nil, domain.NotFound("element", id)
	}
	if e, ok := t.work[id]; ok {
		return e, nil
	}
	e, ok := t.s.elements[id]
	if !ok {
		return nil, domain.NotFound("element", id)
	}
	c := e.clone()
	t.work[id] = c
	return c, nil
}

// peek читает элемент без пометки на изменение.
func (t *tx) peek(id string) (*Element, error) {
	if t.removed[id] {
		return nil, domain.NotFound("element", id)
	}
	if e, ok := t.work[id]; ok {
		return e, nil
	}
	if e, ok := t.s.elements[id]; ok {
		return e, nil
	}
	return nil, domain.NotFound("element", id)
}

func (t *tx) add(e *Element) {
	t.work[e.ID] = e
	t.added = append(t.added, e.ID)
}

func (t *tx) remove(id string) {
	t.removed[id] = true
	delete(t.work, id)
}

// commit проверяет итоговое состояние и только затем подменяет содержимое эскиза.
func (t *tx) commit() error {
	next := maps.Clone(t.s.elements)
	order := make([]string, 0, len(t.s.order)+len(t.added))
	for _, id := range t.s.order {
		if !t.removed[id] {
			order = append(order, id)
		}
	}
	for _, id := range t.added {
		if !t.removed[id] {
			order = append(order, id)
		}
	}
	for id, e := range t.work {
		next[id] = e
	}
	for id := range t.removed {
		delete(next, id)
	}
	if err := validate(next, order); err != nil {
		return domain.InvalidTopology("%v", err)
	}
	t.s.elements = next
	t.s.order = order
	t.s.seq = t.seq
	return nil
}
