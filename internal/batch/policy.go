package batch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mostlydev/javabatch/internal/artman"
	"github.com/mostlydev/javabatch/internal/discovery"
)

// Directory mapping names removed by the cleaner for excluded sub-artifacts.
const (
	ProtoMapping = "proto"
	GRPCMapping  = "grpc"
)

// Policy holds the per-API override tables for a batch run.
type Policy struct {
	// APIs is the default batch list. Empty means every discovered API.
	APIs []string `yaml:"apis"`
	// Blacklist holds config file base names dropped before mapping.
	Blacklist []string `yaml:"blacklist"`
	// ProtoExclusion skips java_proto generation for these APIs.
	ProtoExclusion []string `yaml:"proto_exclusion"`
	// GRPCExclusion skips java_grpc generation for these APIs.
	GRPCExclusion []string `yaml:"grpc_exclusion"`
	// CopyExclusion skips the copy-only step for these APIs.
	CopyExclusion []string `yaml:"copy_exclusion"`
	// CleanupArtifact is the artifact whose staging mappings the cleaner reads.
	CleanupArtifact string `yaml:"cleanup_artifact"`
}

// DefaultPolicy returns the stock tables for the googleapis Java batch.
func DefaultPolicy() Policy {
	return Policy{
		APIs: []string{
			// shared packages
			"core",
			"appengine",
			"iam",
			// gapic
			"bigquerydatatransfer",
			"bigtable",
			"bigtableadmin",
			"container",
			"dataproc_v1",
			"datastore",
			"dialogflow_v2beta1_java",
			"dlp_v2beta1",
			"dlp_v2beta2",
			"errorreporting",
			"firestore",
			"language_v1",
			"language_v1beta2",
			"logging",
			"longrunning",
			"monitoring",
			"pubsub",
			"oslogin_v1",
			"spanner",
			"spanner_admin_database",
			"spanner_admin_instance",
			"speech_v1",
			"speech_v1beta1",
			"cloudtrace_v1",
			"cloudtrace_v2",
			"videointelligence_v1beta1",
			"videointelligence_v1beta2",
			"videointelligence_v1",
			"vision_v1",
			"vision_v1p1beta1",
		},
		Blacklist:       []string{discovery.FileName("streetview_publish")},
		ProtoExclusion:  []string{"longrunning"},
		GRPCExclusion:   []string{"appengine", "longrunning"},
		CopyExclusion:   []string{"dlp_v2beta2"},
		CleanupArtifact: artman.KindGapic,
	}
}

// LoadPolicy reads a YAML policy file over DefaultPolicy. Keys present in the
// file replace the default table wholesale.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if policy.CleanupArtifact == "" {
		policy.CleanupArtifact = artman.KindGapic
	}
	return policy, nil
}

// Plan picks the APIs to dispatch. An explicit apiList wins and ignores
// exclude; otherwise the policy list (or every registered API) minus exclude
// is used. Unknown names abort the plan.
func Plan(reg discovery.Registry, policy Policy, apiList, exclude []string) ([]discovery.Selection, error) {
	if len(apiList) > 0 {
		return reg.Select(apiList)
	}
	apis := policy.APIs
	if len(apis) == 0 {
		apis = reg.APIs()
	}
	return reg.Select(without(apis, exclude))
}

// CopyCandidates filters selections through the copy exclusion table.
func CopyCandidates(policy Policy, selected []discovery.Selection) []discovery.Selection {
	out := make([]discovery.Selection, 0, len(selected))
	for _, sel := range selected {
		if contains(policy.CopyExclusion, sel.API) {
			continue
		}
		out = append(out, sel)
	}
	return out
}

func without(list, drop []string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if !contains(drop, item) {
			out = append(out, item)
		}
	}
	return out
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
