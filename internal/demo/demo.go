// Package demo builds the example scenes driven by the rvue command.
package demo

import (
	"slices"

	"github.com/XuHaoJun/rvue-sub001/internal/errors"
	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
	"github.com/XuHaoJun/rvue-sub001/pkg/widget"
)

// Env is what a scene is built into.
type Env struct {
	Runtime *reactive.Runtime
	Tree    *tree.Tree
	Kit     *widget.Kit
	Width   float32
	Height  float32
}

// Scene is a built scene.
type Scene struct {
	Name string
	Root tree.Handle

	// Step simulates input number i. It writes signals only; callers run it
	// through frame.Driver.Input or Dispatch.
	Step func(i int) error
}

// BuildFunc builds a scene into env.
type BuildFunc func(env *Env) (*Scene, error)

var scenes = map[string]struct {
	about string
	build BuildFunc
}{
	"counter": {"a count signal, a memo of its double and a bar sized by it", buildCounter},
	"list":    {"a keyed list that rotates, grows and shrinks", buildList},
	"theme":   {"themed widgets with an overlay badge; the theme flips every 4 steps", buildTheme},
}

// Names returns the scene names in order.
func Names() []string {
	names := make([]string, 0, len(scenes))
	for name := range scenes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// About returns a one-line description of a scene.
func About(name string) string {
	return scenes[name].about
}

// Build builds the named scene. The scene's root is resolved to the env's
// size.
func Build(name string, env *Env) (*Scene, error) {
	s, ok := scenes[name]
	if !ok {
		return nil, errors.New("R030").WithSubject(name)
	}
	scene, err := s.build(env)
	if err != nil {
		return nil, err
	}
	scene.Name = name
	return scene, nil
}

func (env *Env) root() (tree.Handle, error) {
	root := env.Tree.NewRoot(env.Kit.Panel, nil)
	err := env.Tree.Resolve(root, tree.Layout{
		Transform: fragment.Identity(),
		Size:      tree.Size{W: env.Width, H: env.Height},
	})
	return root, err
}

// builder collects the first error of a sequence of builds.
type builder struct {
	env *Env
	err error
}

func (b *builder) add(parent tree.Handle, kind *tree.Kind, props tree.Props) tree.Handle {
	if b.err != nil {
		return tree.Handle{}
	}
	h, err := b.env.Tree.Build(parent, kind, props)
	b.err = err
	return h
}

func (b *builder) bind(h tree.Handle, name string, fn func(*reactive.Exec) error) {
	if b.err != nil {
		return
	}
	_, b.err = b.env.Tree.Bind(h, fn, reactive.EffectName(name))
}
