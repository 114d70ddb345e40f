package classify

import (
	"regexp"
	"slices"
)

// DomainTag names one coarse technical category. The empty tag means no
// category was assigned.
type DomainTag string

// Domain tags in enumeration order. Ties in keyword counts resolve to the tag
// listed first.
const (
	Programming            DomainTag = "programming"
	DevOps                 DomainTag = "devops"
	Database               DomainTag = "database"
	Networking             DomainTag = "networking"
	Security               DomainTag = "security"
	WebDevelopment         DomainTag = "web_development"
	MobileDevelopment      DomainTag = "mobile_development"
	DataScience            DomainTag = "data_science"
	ArtificialIntelligence DomainTag = "artificial_intelligence"
	General                DomainTag = "general"
)

// Domains lists every tag in enumeration order.
var Domains = []DomainTag{
	Programming,
	DevOps,
	Database,
	Networking,
	Security,
	WebDevelopment,
	MobileDevelopment,
	DataScience,
	ArtificialIntelligence,
	General,
}

var labels = map[DomainTag]string{
	Programming:            "Programming",
	DevOps:                 "DevOps",
	Database:               "Database",
	Networking:             "Networking",
	Security:               "Security",
	WebDevelopment:         "Web Development",
	MobileDevelopment:      "Mobile Development",
	DataScience:            "Data Science",
	ArtificialIntelligence: "AI",
	General:                "General",
}

// Label returns the display name for the tag.
func (d DomainTag) Label() string {
	if l, ok := labels[d]; ok {
		return l
	}
	return string(d)
}

// Vocabulary maps each domain to its lowercase keywords. Multi-word keywords
// match as whole phrases.
type Vocabulary map[DomainTag][]string

// DefaultVocabulary returns a fresh copy of the built-in keyword tables.
func DefaultVocabulary() Vocabulary {
	v := make(Vocabulary, len(defaultVocabulary))
	for tag, words := range defaultVocabulary {
		v[tag] = slices.Clone(words)
	}
	return v
}

var defaultVocabulary = Vocabulary{
	Programming: {
		"function", "javascript", "typescript", "python", "java", "golang", "rust",
		"c++", "c#", "class", "object", "interface", "closure", "recursion",
		"algorithm", "data structure", "array", "linked list", "hash map", "hashmap",
		"hash table", "pointer", "variable", "thread", "mutex", "goroutine",
		"concurrency", "async", "await", "promise", "callback", "compiler",
		"garbage collection", "inheritance", "polymorphism", "generics", "exception",
		"binary tree", "big o", "time complexity", "refactoring", "unit test",
		"immutable", "lambda expression", "dependency injection",
	},
	DevOps: {
		"docker", "kubernetes", "k8s", "container", "containers", "ci/cd", "jenkins",
		"terraform", "ansible", "helm", "deployment", "pipeline", "devops",
		"infrastructure as code", "monitoring", "prometheus", "grafana", "aws",
		"azure", "gcp", "cloud", "serverless", "microservices", "nginx",
		"observability", "blue green deployment", "canary release", "rollback",
		"github actions", "autoscaling",
	},
	Database: {
		"database", "sql", "nosql", "postgres", "postgresql", "mysql", "mongodb",
		"redis", "index", "indexes", "query", "transaction", "acid", "normalization",
		"join", "schema", "sharding", "replication", "orm", "primary key",
		"foreign key", "stored procedure", "cassandra", "sqlite", "isolation level",
		"deadlock", "dynamodb",
	},
	Networking: {
		"tcp", "udp", "ip", "dns", "dhcp", "osi model", "router", "subnet", "latency",
		"bandwidth", "load balancer", "proxy", "reverse proxy", "socket", "websocket",
		"handshake", "packet", "cdn", "ipv4", "ipv6", "nat", "vpn", "http/2",
		"network",
	},
	Security: {
		"security", "authentication", "authorization", "oauth", "jwt", "encryption",
		"hashing", "xss", "csrf", "sql injection", "firewall", "vulnerability",
		"penetration testing", "tls", "ssl", "certificate", "owasp", "password",
		"mfa", "zero trust", "rbac", "secrets management",
	},
	WebDevelopment: {
		"html", "css", "react", "angular", "vue", "dom", "frontend", "backend",
		"rest", "rest api", "api", "graphql", "node.js", "nodejs", "express",
		"webpack", "browser", "cookie", "cookies", "cors", "http", "https",
		"responsive design", "next.js", "single page application",
		"server side rendering", "javascript",
	},
	MobileDevelopment: {
		"ios", "android", "swift", "kotlin", "flutter", "react native", "mobile",
		"app store", "xcode", "swiftui", "jetpack compose", "push notification",
		"push notifications",
	},
	DataScience: {
		"data science", "pandas", "numpy", "statistics", "regression", "dataset",
		"visualization", "data pipeline", "etl", "data warehouse", "spark",
		"hadoop", "big data", "correlation", "hypothesis testing", "jupyter",
		"feature engineering",
	},
	ArtificialIntelligence: {
		"machine learning", "deep learning", "neural network", "neural networks",
		"ai", "artificial intelligence", "llm", "large language model",
		"transformer", "gpt", "nlp", "natural language processing",
		"computer vision", "model training", "overfitting", "gradient descent",
		"embedding", "embeddings", "reinforcement learning", "fine tuning",
		"prompt engineering", "rag", "pytorch", "tensorflow",
	},
	General: {
		"software", "technology", "computer", "architecture", "system design",
		"scalability", "tech stack", "best practice", "best practices", "agile",
		"scrum", "code review", "version control", "git",
	},
}

// DefaultPatterns are the question-shaped expressions that raise the base
// confidence. They are matched against lowercased, trimmed text.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`^(how|what|why|when|where|which|who)\b`),
		regexp.MustCompile(`^(can|could|would|will) you\b`),
		regexp.MustCompile(`^(is|are|do|does|did|should) \w+`),
		regexp.MustCompile(`\bhow (do|does|did|can|could|would|should|to)\b`),
		regexp.MustCompile(`\bwhat (is|are|was|were|does|do)\b`),
		regexp.MustCompile(`\bwhy (is|are|do|does|would|should)\b`),
		regexp.MustCompile(`\bwhen (should|would|do|does)\b`),
		regexp.MustCompile(`\bdifference between\b`),
		regexp.MustCompile(`\b(compare|versus|vs)\b`),
		regexp.MustCompile(`^(explain|describe|tell me|show me|walk me through)\b`),
		regexp.MustCompile(`\?$`),
	}
}
