package workload

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseCopySpec parses the --copy CLI argument into a CopyConfig, following
// the original grammar:
//
//	<#copies>
//	<#copies>:(+|-):<value>:fixed
//	<#copies>:(+|-):<a>:<b>:unif:(single|each-copy|all)[:<seed>]
//	<#copies>:=:<value>:fixed
//	<#copies>:=:<mean>:exp[:<seed>]
//	<#copies>:=:<a>:<b>:unif[:<seed>]
//
// "+"/"-" jitter the original submission time; "=" replaces it outright.
// A trailing seed token may be a decimal integer or the literal "s" for an
// explicitly time-seeded (non-deterministic) draw.
func ParseCopySpec(spec string) (CopyConfig, error) {
	parts := strings.Split(spec, ":")
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return CopyConfig{}, errors.Errorf("workload: --copy: bad copy count %q", parts[0])
	}
	cfg := CopyConfig{N: n}
	if len(parts) == 1 {
		return cfg, nil
	}

	symbol, rest := parts[1], parts[2:]
	switch symbol {
	case "+", "-":
		return parseCopyJitter(cfg, symbol == "-", rest, spec)
	case "=":
		return parseCopyAbsolute(cfg, rest, spec)
	default:
		return CopyConfig{}, errors.Errorf("workload: --copy: unknown symbol %q in %q", symbol, spec)
	}
}

func parseCopyJitter(cfg CopyConfig, negate bool, rest []string, spec string) (CopyConfig, error) {
	if len(rest) < 2 {
		return CopyConfig{}, errors.Errorf("workload: --copy: malformed jitter clause in %q", spec)
	}
	if rest[1] == "fixed" {
		v, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return CopyConfig{}, errors.Errorf("workload: --copy: bad fixed value %q", rest[0])
		}
		if negate {
			v = -v
		}
		cfg.Mode = RewriteFixed
		cfg.Fixed = v
		return cfg, nil
	}
	if len(rest) < 4 || rest[2] != "unif" {
		return CopyConfig{}, errors.Errorf("workload: --copy: malformed unif jitter in %q", spec)
	}
	a, errA := strconv.ParseFloat(rest[0], 64)
	b, errB := strconv.ParseFloat(rest[1], 64)
	if errA != nil || errB != nil {
		return CopyConfig{}, errors.Errorf("workload: --copy: bad unif range in %q", spec)
	}
	if negate {
		a, b = -b, -a
	}
	howMany := rest[3]
	var seedTok string
	if len(rest) > 4 {
		seedTok = rest[4]
	}
	seed, err := parseSeedToken(seedTok)
	if err != nil {
		return CopyConfig{}, err
	}
	rng := NewSeededRng(seed)

	switch howMany {
	case "each-copy":
		cfg.Mode, cfg.A, cfg.B, cfg.Scope, cfg.Rng = RewriteUnif, a, b, JitterPerCopy, rng
	case "all":
		cfg.Mode, cfg.A, cfg.B, cfg.Scope, cfg.Rng = RewriteUnif, a, b, JitterPerJob, rng
	case "single":
		// One draw for the entire operation: fold it into a fixed offset so
		// every copy and every job within it gets the identical value.
		cfg.Mode = RewriteFixed
		cfg.Fixed = drawJitter(CopyConfig{Mode: RewriteUnif, A: a, B: b, Rng: rng})
	default:
		return CopyConfig{}, errors.Errorf("workload: --copy: unknown scope %q in %q", howMany, spec)
	}
	return cfg, nil
}

func parseCopyAbsolute(cfg CopyConfig, rest []string, spec string) (CopyConfig, error) {
	cfg.Absolute = true
	if len(rest) < 2 {
		return CopyConfig{}, errors.Errorf("workload: --copy: malformed '=' clause in %q", spec)
	}
	switch rest[1] {
	case "fixed":
		v, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return CopyConfig{}, errors.Errorf("workload: --copy: bad fixed value %q", rest[0])
		}
		cfg.Mode = RewriteFixed
		cfg.Fixed = v
		return cfg, nil
	case "exp":
		mean, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return CopyConfig{}, errors.Errorf("workload: --copy: bad exp mean %q", rest[0])
		}
		var seedTok string
		if len(rest) > 2 {
			seedTok = rest[2]
		}
		seed, err := parseSeedToken(seedTok)
		if err != nil {
			return CopyConfig{}, err
		}
		cfg.Mode, cfg.Mean, cfg.Scope, cfg.Rng = RewriteExp, mean, JitterPerJob, NewSeededRng(seed)
		return cfg, nil
	}
	if len(rest) < 3 || rest[2] != "unif" {
		return CopyConfig{}, errors.Errorf("workload: --copy: malformed '=' clause in %q", spec)
	}
	a, errA := strconv.ParseFloat(rest[0], 64)
	b, errB := strconv.ParseFloat(rest[1], 64)
	if errA != nil || errB != nil {
		return CopyConfig{}, errors.Errorf("workload: --copy: bad unif range in %q", spec)
	}
	var seedTok string
	if len(rest) > 3 {
		seedTok = rest[3]
	}
	seed, err := parseSeedToken(seedTok)
	if err != nil {
		return CopyConfig{}, err
	}
	cfg.Mode, cfg.A, cfg.B, cfg.Scope, cfg.Rng = RewriteUnif, a, b, JitterPerJob, NewSeededRng(seed)
	return cfg, nil
}

// ParseSubmissionRewrite parses a --submission-time-before/-after CLI
// argument into a SubmissionRewrite and its associated seed, following the
// original grammar:
//
//	<value>:fixed
//	<mean>:exp[:(<seed>|s)]
//	<a>:<b>:unif[:(<seed>|s)]
//	shuffle[:(<seed>|s)]
//
// A nil seed return means "time-seeded" (no deterministic seed requested).
func ParseSubmissionRewrite(spec string) (SubmissionRewrite, *int64, error) {
	parts := strings.Split(spec, ":")
	if parts[0] == "shuffle" {
		var seedTok string
		if len(parts) > 1 {
			seedTok = parts[1]
		}
		seed, err := parseSeedToken(seedTok)
		if err != nil {
			return SubmissionRewrite{}, nil, err
		}
		return SubmissionRewrite{Mode: RewriteShuffle}, seed, nil
	}
	if len(parts) < 2 {
		return SubmissionRewrite{}, nil, errors.Errorf("workload: bad rewrite spec %q", spec)
	}
	switch parts[1] {
	case "fixed":
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return SubmissionRewrite{}, nil, errors.Errorf("workload: bad fixed value %q", parts[0])
		}
		return SubmissionRewrite{Mode: RewriteFixed, Fixed: v}, nil, nil
	case "exp":
		mean, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return SubmissionRewrite{}, nil, errors.Errorf("workload: bad exp mean %q", parts[0])
		}
		var seedTok string
		if len(parts) > 2 {
			seedTok = parts[2]
		}
		seed, err := parseSeedToken(seedTok)
		if err != nil {
			return SubmissionRewrite{}, nil, err
		}
		return SubmissionRewrite{Mode: RewriteExp, Mean: mean}, seed, nil
	}
	if len(parts) < 3 || parts[2] != "unif" {
		return SubmissionRewrite{}, nil, errors.Errorf("workload: bad rewrite spec %q", spec)
	}
	a, errA := strconv.ParseFloat(parts[0], 64)
	b, errB := strconv.ParseFloat(parts[1], 64)
	if errA != nil || errB != nil {
		return SubmissionRewrite{}, nil, errors.Errorf("workload: bad unif range in %q", spec)
	}
	var seedTok string
	if len(parts) > 3 {
		seedTok = parts[3]
	}
	seed, err := parseSeedToken(seedTok)
	if err != nil {
		return SubmissionRewrite{}, nil, err
	}
	return SubmissionRewrite{Mode: RewriteUnif, A: a, B: b}, seed, nil
}

// parseSeedToken parses an optional trailing seed token: empty or "s" means
// time-seeded (nil), anything else must be a decimal integer.
func parseSeedToken(tok string) (*int64, error) {
	if tok == "" || tok == "s" {
		return nil, nil
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return nil, errors.Errorf("workload: bad seed token %q", tok)
	}
	return &v, nil
}
