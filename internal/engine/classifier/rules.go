package classifier

import (
	"fmt"
	"os"

	"reforge/internal/core/errors"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

// Marker annotations recognized in a construct's leading comment. A marker
// wins outright over every heuristic.
const (
	MarkerPure           = "@pure"
	MarkerIO             = "@io"
	MarkerOrchestration  = "@orchestration"
	MarkerEffectBoundary = "@effect-boundary"
	MarkerIgnore         = "@fp-ignore"
)

// SignalRule is one weighted heuristic. Pattern is a glob matched against an
// import source module or a construct name, depending on which list the rule
// sits in.
type SignalRule struct {
	Name     string  `toml:"name"`
	Pattern  string  `toml:"pattern"`
	Polarity string  `toml:"polarity"`
	Weight   float64 `toml:"weight"`

	matcher glob.Glob
}

// DirectoryHint is the lowest-priority signal: a path-based nudge that only
// applies when no import, naming or body rule fired.
type DirectoryHint struct {
	Name     string  `toml:"name"`
	Pattern  string  `toml:"pattern"`
	Polarity string  `toml:"polarity"`
	Weight   float64 `toml:"weight"`

	matcher glob.Glob
}

// BodyWeights attach impurity weights to the precomputed body facts. A body
// with none of them set contributes the CleanBody positive weight instead.
type BodyWeights struct {
	MutationCall float64 `toml:"mutation_call"`
	Reassignment float64 `toml:"reassignment"`
	ThisUsage    float64 `toml:"this_usage"`
	Loop         float64 `toml:"loop"`
	CleanBody    float64 `toml:"clean_body"`
}

// ZoneRules is the versioned rule configuration the classifier consumes.
// Classification output embeds the version so results from different rule
// sets are never confused.
type ZoneRules struct {
	Version        string          `toml:"version"`
	ImportRules    []SignalRule    `toml:"import_rules"`
	NamingRules    []SignalRule    `toml:"naming_rules"`
	Body           BodyWeights     `toml:"body"`
	DirectoryHints []DirectoryHint `toml:"directory_hints"`
}

// DefaultZoneRules returns the built-in rule set.
func DefaultZoneRules() *ZoneRules {
	rules := &ZoneRules{
		Version: "builtin-1",
		ImportRules: []SignalRule{
			{Name: "node-io-import", Pattern: "{fs,node:fs,node:fs/*,path,node:path,os,node:os,child_process,node:child_process}", Polarity: PolarityNegative, Weight: 3},
			{Name: "network-import", Pattern: "{http,https,net,node:http,node:https,node:net,axios,node-fetch,got,undici}", Polarity: PolarityNegative, Weight: 3},
			{Name: "server-import", Pattern: "{express,fastify,koa,hapi}", Polarity: PolarityNegative, Weight: 3},
			{Name: "storage-import", Pattern: "{pg,mysql*,mongodb,mongoose,redis,ioredis,knex,prisma,@prisma/*}", Polarity: PolarityNegative, Weight: 3},
			{Name: "ui-framework-import", Pattern: "{react,react-dom,vue,svelte,preact}", Polarity: PolarityNegative, Weight: 1},
		},
		NamingRules: []SignalRule{
			{Name: "transform-name", Pattern: "{format*,parse*,compute*,calculate*,to*,build*,map*,select*,derive*,normalize*,validate*}", Polarity: PolarityPositive, Weight: 2},
			{Name: "io-verb-name", Pattern: "{fetch*,load*,save*,write*,read*,send*,upload*,download*,persist*,sync*}", Polarity: PolarityNegative, Weight: 2},
			{Name: "handler-name", Pattern: "{handle*,on[A-Z]*,dispatch*,process*,run*,execute*}", Polarity: PolarityNegative, Weight: 1},
			{Name: "hook-name", Pattern: "use[A-Z]*", Polarity: PolarityNegative, Weight: 1},
		},
		Body: BodyWeights{
			MutationCall: 2,
			Reassignment: 1,
			ThisUsage:    1,
			Loop:         1,
			CleanBody:    2,
		},
		DirectoryHints: []DirectoryHint{
			{Name: "utils-dir", Pattern: "**/{utils,util,lib,helpers,pure}/**", Polarity: PolarityPositive, Weight: 1},
			{Name: "api-dir", Pattern: "**/{api,services,io,server,db}/**", Polarity: PolarityNegative, Weight: 2},
			{Name: "hooks-dir", Pattern: "**/hooks/**", Polarity: PolarityNegative, Weight: 1},
		},
	}
	if err := rules.compile(); err != nil {
		panic(err)
	}
	return rules
}

// LoadZoneRules reads a rule file, fills defaults for missing sections and
// compiles all patterns. A missing path yields the built-in rules.
func LoadZoneRules(path string) (*ZoneRules, error) {
	if path == "" {
		return DefaultZoneRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultZoneRules(), nil
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "failed to read zone rules"),
			errors.CtxPath, path)
	}

	rules := &ZoneRules{}
	if err := toml.Unmarshal(data, rules); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "failed to parse zone rules"),
			errors.CtxPath, path)
	}
	rules.applyDefaults()
	if err := rules.validate(); err != nil {
		return nil, err
	}
	if err := rules.compile(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ZoneRules) applyDefaults() {
	defaults := DefaultZoneRules()
	if r.Version == "" {
		r.Version = defaults.Version
	}
	if len(r.ImportRules) == 0 {
		r.ImportRules = defaults.ImportRules
	}
	if len(r.NamingRules) == 0 {
		r.NamingRules = defaults.NamingRules
	}
	if r.Body == (BodyWeights{}) {
		r.Body = defaults.Body
	}
	if len(r.DirectoryHints) == 0 {
		r.DirectoryHints = defaults.DirectoryHints
	}
}

func (r *ZoneRules) validate() error {
	check := func(name, polarity string, weight float64) error {
		if polarity != PolarityPositive && polarity != PolarityNegative {
			return errors.New(errors.CodeValidationError,
				fmt.Sprintf("rule %q: polarity must be %q or %q", name, PolarityPositive, PolarityNegative))
		}
		if weight <= 0 {
			return errors.New(errors.CodeValidationError,
				fmt.Sprintf("rule %q: weight must be positive", name))
		}
		return nil
	}
	for _, rule := range r.ImportRules {
		if err := check(rule.Name, rule.Polarity, rule.Weight); err != nil {
			return err
		}
	}
	for _, rule := range r.NamingRules {
		if err := check(rule.Name, rule.Polarity, rule.Weight); err != nil {
			return err
		}
	}
	for _, hint := range r.DirectoryHints {
		if err := check(hint.Name, hint.Polarity, hint.Weight); err != nil {
			return err
		}
	}
	return nil
}

func (r *ZoneRules) compile() error {
	for i := range r.ImportRules {
		m, err := glob.Compile(r.ImportRules[i].Pattern)
		if err != nil {
			return errors.Wrap(err, errors.CodeValidationError,
				fmt.Sprintf("invalid import rule pattern %q", r.ImportRules[i].Pattern))
		}
		r.ImportRules[i].matcher = m
	}
	for i := range r.NamingRules {
		m, err := glob.Compile(r.NamingRules[i].Pattern)
		if err != nil {
			return errors.Wrap(err, errors.CodeValidationError,
				fmt.Sprintf("invalid naming rule pattern %q", r.NamingRules[i].Pattern))
		}
		r.NamingRules[i].matcher = m
	}
	for i := range r.DirectoryHints {
		m, err := glob.Compile(r.DirectoryHints[i].Pattern, '/')
		if err != nil {
			return errors.Wrap(err, errors.CodeValidationError,
				fmt.Sprintf("invalid directory hint pattern %q", r.DirectoryHints[i].Pattern))
		}
		r.DirectoryHints[i].matcher = m
	}
	return nil
}
