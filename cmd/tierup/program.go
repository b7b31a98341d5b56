package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/ir"
	"github.com/wippyai/tierup/method"
)

// Program is a set of methods and the calls to make on them.
type Program struct {
	Methods []MethodSpec `yaml:"methods"`
}

// MethodSpec defines one method of a program file.
type MethodSpec struct {
	Owner      string    `yaml:"owner"`
	Name       string    `yaml:"name"`
	File       string    `yaml:"file"`
	Visibility string    `yaml:"visibility"`
	Code       string    `yaml:"code"`
	Calls      [][]int64 `yaml:"calls"`
	Line       int       `yaml:"line"`
	Params     int       `yaml:"params"`
	Locals     int       `yaml:"locals"`
	Singleton  bool      `yaml:"singleton"`
	Optimize   bool      `yaml:"optimize"`
}

// target is a defined method together with the calls to make on it.
type target struct {
	method *method.Method
	class  string
	calls  [][]int64
}

func loadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}

	var p Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
			Path(path).
			Detail("parse program").
			Cause(err).
			Build()
	}
	if len(p.Methods) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "program defines no methods")
	}
	return &p, nil
}

// define parses every method body and registers the methods.
func (p *Program) define(reg *method.Registry) ([]target, error) {
	modules := make(map[string]*method.Module)
	module := func(name string) *method.Module {
		m, ok := modules[name]
		if !ok {
			m = method.NewModule(name)
			modules[name] = m
		}
		return m
	}

	targets := make([]target, 0, len(p.Methods))
	for _, spec := range p.Methods {
		if spec.Name == "" || spec.Owner == "" {
			return nil, errors.InvalidInput(errors.PhaseParse, "method without owner or name")
		}

		scope, err := ir.Parse(spec.Name, spec.Params, spec.Locals, spec.Code)
		if err != nil {
			return nil, err
		}
		if spec.Optimize {
			if err := ir.Optimize(scope, ir.DefaultPasses()...); err != nil {
				return nil, err
			}
		}

		vis, err := method.ParseVisibility(spec.Visibility)
		if err != nil {
			return nil, err
		}

		owner := module(spec.Owner)
		if spec.Singleton {
			owner = method.NewSingleton(owner)
		}

		m := method.New(spec.Name, owner, scope,
			method.WithLocation(spec.File, spec.Line),
			method.WithVisibility(vis),
		)
		reg.Define(m)
		targets = append(targets, target{method: m, class: owner.Name(), calls: spec.Calls})
	}
	return targets, nil
}
