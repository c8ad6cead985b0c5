package awsbackup_test

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/backup"
	"github.com/aws/aws-sdk-go-v2/service/backup/types"
	"github.com/aws/smithy-go"
)

// backupServer is an in-memory AWS Backup simulator implementing awsbackup.API.
type backupServer struct {
	mu sync.Mutex

	pageSize int
	vaults   map[string]map[string]bool // vault name -> set of recovery point ARNs
	denied   map[string]bool
	locked   map[string]bool // recovery point ARNs that refuse deletion

	listCalls   int
	deleteCalls int
}

func newBackupServer(pageSize int) *backupServer {
	return &backupServer{
		pageSize: pageSize,
		vaults:   make(map[string]map[string]bool),
		denied:   make(map[string]bool),
		locked:   make(map[string]bool),
	}
}

// addVault creates a vault holding count recovery points and returns their ARNs.
func (s *backupServer) addVault(name string, count int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	points := make(map[string]bool, count)
	arns := make([]string, 0, count)
	for i := 0; i < count; i++ {
		arn := fmt.Sprintf("arn:aws:backup:eu-west-1:123456789012:recovery-point:%s-%03d", name, i)
		points[arn] = true
		arns = append(arns, arn)
	}
	s.vaults[name] = points
	return arns
}

func (s *backupServer) remaining(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vaults[name])
}

func apiError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message, Fault: smithy.FaultClient}
}

func (s *backupServer) DescribeBackupVault(
	ctx context.Context,
	input *backup.DescribeBackupVaultInput,
	opts ...func(*backup.Options),
) (*backup.DescribeBackupVaultOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := aws.ToString(input.BackupVaultName)
	if s.denied[name] {
		return nil, apiError("AccessDeniedException", "not authorized to describe "+name)
	}
	if _, exists := s.vaults[name]; !exists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("backup vault " + name + " not found")}
	}
	return &backup.DescribeBackupVaultOutput{BackupVaultName: aws.String(name)}, nil
}

func (s *backupServer) ListRecoveryPointsByBackupVault(
	ctx context.Context,
	input *backup.ListRecoveryPointsByBackupVaultInput,
	opts ...func(*backup.Options),
) (*backup.ListRecoveryPointsByBackupVaultOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++

	name := aws.ToString(input.BackupVaultName)
	points, exists := s.vaults[name]
	if !exists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("backup vault " + name + " not found")}
	}

	arns := make([]string, 0, len(points))
	for arn := range points {
		arns = append(arns, arn)
	}
	sort.Strings(arns)

	start := 0
	if input.NextToken != nil {
		n, err := strconv.Atoi(*input.NextToken)
		if err != nil || n < 0 || n > len(arns) {
			return nil, apiError("InvalidParameterValueException", "bad next token")
		}
		start = n
	}
	end := min(start+s.pageSize, len(arns))

	out := &backup.ListRecoveryPointsByBackupVaultOutput{}
	for _, arn := range arns[start:end] {
		out.RecoveryPoints = append(out.RecoveryPoints, types.RecoveryPointByBackupVault{
			RecoveryPointArn: aws.String(arn),
			BackupVaultName:  aws.String(name),
		})
	}
	if end < len(arns) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (s *backupServer) DeleteRecoveryPoint(
	ctx context.Context,
	input *backup.DeleteRecoveryPointInput,
	opts ...func(*backup.Options),
) (*backup.DeleteRecoveryPointOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++

	name := aws.ToString(input.BackupVaultName)
	arn := aws.ToString(input.RecoveryPointArn)
	points, exists := s.vaults[name]
	if !exists || !points[arn] {
		return nil, &types.ResourceNotFoundException{Message: aws.String("recovery point " + arn + " not found")}
	}
	if s.locked[arn] {
		return nil, &types.InvalidRequestException{Message: aws.String("recovery point " + arn + " is locked")}
	}
	delete(points, arn)
	return &backup.DeleteRecoveryPointOutput{}, nil
}
