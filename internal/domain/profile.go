package domain

// GraphNode is a professional profile in the trust graph.
type GraphNode struct {
	ID            string         `json:"id"`
	Label         string         `json:"label"`
	Role          string         `json:"role"`
	Skills        []string       `json:"skills"`
	Verified      bool           `json:"verified"`
	Domain        string         `json:"domain"`
	Connections   int            `json:"connections"`
	TrustScore    float64        `json:"trustScore"`
	Verifications []Verification `json:"verifications"`
}

// Verification is a past, already recorded verification shown on a profile.
type Verification struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Date   string `json:"date"`
}

// GraphEdge is a relationship between two profiles.
type GraphEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
	Project      string `json:"project,omitempty"`
	Company      string `json:"company,omitempty"`
	Verified     bool   `json:"verified"`
}

// Graph is the whole trust graph as served to the frontend.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphStats summarizes a Graph.
type GraphStats struct {
	Nodes             int     `json:"nodes"`
	Edges             int     `json:"edges"`
	VerifiedNodeRatio float64 `json:"verified_node_ratio"`
	VerifiedEdgeRatio float64 `json:"verified_edge_ratio"`
	MeanTrustScore    float64 `json:"mean_trust_score"`
	MedianTrustScore  float64 `json:"median_trust_score"`
	MeanConnections   float64 `json:"mean_connections"`
}

// CV holds the fields scraped from a profile's CV page.
type CV struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Skills []string `json:"skills"`
	GitHub string   `json:"github"`
	Text   string   `json:"-"`
}

// GitHubUser is the public GitHub account information attached during enrichment.
type GitHubUser struct {
	Login           string `json:"login"`
	Name            string `json:"name,omitempty"`
	Company         string `json:"company,omitempty"`
	PublicRepos     int    `json:"public_repos"`
	CommitsLastYear int    `json:"commits_last_year"`
}

// Enrichment is the combined view built for a single profile.
type Enrichment struct {
	CV              CV                  `json:"cv"`
	ExtractedSkills []string            `json:"extracted_skills"`
	Verification    *VerificationResult `json:"verification,omitempty"`
	GitHubUser      *GitHubUser         `json:"github_user,omitempty"`
	Warnings        []string            `json:"warnings,omitempty"`
}
