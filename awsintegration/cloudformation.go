package awsintegration

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
)

const (
	DefaultStackName = "VitruviuxIntegrationStack"
	paramPrefix      = "param_"
)

// cliParameters are emitted in this order, with empty values when absent from the link.
var cliParameters = []string{"GitHubOwner", "GitHubEnvironment", "ControlPlaneAccountId"}

// StackLaunch is a parsed CloudFormation console quick-create link.
type StackLaunch struct {
	URL         string
	StackName   string
	TemplateURL string
	Parameters  map[string]string // keyed without the param_ prefix
}

// ParseCloudFormationURL reads the stack name, template and parameters from a console link.
// The console keeps them in the fragment, after "#/stacks/quickcreate?".
func ParseCloudFormationURL(raw string) (*StackLaunch, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedResponse, "cloudformation url %q", raw)
	}

	query := u.EscapedFragment()
	if i := strings.IndexByte(query, '?'); i >= 0 {
		query = query[i+1:]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedResponse, "cloudformation url fragment: %v", err)
	}
	for k, v := range u.Query() {
		if _, ok := values[k]; !ok {
			values[k] = v
		}
	}

	launch := &StackLaunch{
		URL:         raw,
		StackName:   values.Get("stackName"),
		TemplateURL: values.Get("templateURL"),
		Parameters:  make(map[string]string),
	}
	if launch.StackName == "" {
		launch.StackName = DefaultStackName
	}
	for k := range values {
		if name, ok := strings.CutPrefix(k, paramPrefix); ok && name != "" {
			launch.Parameters[name] = values.Get(k)
		}
	}
	return launch, nil
}

// ParameterNames returns the parameter names in sorted order.
func (s StackLaunch) ParameterNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for k := range s.Parameters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// CLICommand is the equivalent `aws cloudformation create-stack` invocation.
func (s StackLaunch) CLICommand() string {
	var b strings.Builder
	b.WriteString("aws cloudformation create-stack \\\n")
	fmt.Fprintf(&b, "  --stack-name %s \\\n", s.StackName)
	fmt.Fprintf(&b, "  --template-url %q \\\n", s.TemplateURL)
	b.WriteString("  --parameters \\\n")
	for _, name := range cliParameters {
		fmt.Fprintf(&b, "    ParameterKey=%s,ParameterValue=%q \\\n", name, s.Parameters[name])
	}
	b.WriteString("  --capabilities CAPABILITY_NAMED_IAM")
	return b.String()
}
