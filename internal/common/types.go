package common

import "fmt"

// InstanceClassServerless is reported for clusters that have no provisioned
// member instances (Aurora Serverless v1). It has no vCPU count.
const InstanceClassServerless = "db.serverless"

// Account is a target AWS account
type Account struct {
	ID   string
	Name string
}

// String returns "Name (ID)", or just the ID when the name is unknown
func (a Account) String() string {
	if a.Name == "" || a.Name == a.ID {
		return a.ID
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// InstanceDescriptor is a database instance as returned by the RDS API
type InstanceDescriptor struct {
	Identifier        string
	ClusterIdentifier string
	InstanceClass     string
	Engine            string
	EngineVersion     string
	Status            string
	MultiAZ           bool
	ARN               string
	AccountID         string
	Region            string
}

// Scope is one account and region pair
type Scope struct {
	AccountID string
	Region    string
}

func (s Scope) String() string {
	if s.Region == "" {
		return s.AccountID
	}
	return s.AccountID + "/" + s.Region
}

// ScopeResult is the outcome of enumerating one scope.
// Err is set when the scope could not be read; Instances may then be partial or empty.
type ScopeResult struct {
	Scope     Scope
	Instances []InstanceDescriptor
	Err       error
}
